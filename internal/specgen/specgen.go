// Package specgen folds a flat endpoint list into the canonical spec
// document: grouped by path, keyed by method, deduplicated last-write-wins.
package specgen

import (
	"fmt"
	"strings"

	"specforge/internal/types"
)

// canonicalTypes is the closed type set the spec admits. Anything else maps
// to "string" for parameters and an open object for responses.
var canonicalTypes = map[string]bool{
	"string": true, "integer": true, "number": true,
	"boolean": true, "array": true, "object": true,
}

// CanonicalType maps an extractor-declared type into the canonical set.
func CanonicalType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	switch t {
	case "int", "long", "int32", "int64":
		t = "integer"
	case "float", "double", "decimal":
		t = "number"
	case "bool":
		t = "boolean"
	case "list":
		t = "array"
	case "dict", "map":
		t = "object"
	}
	if !canonicalTypes[t] {
		return "string"
	}
	return t
}

// Generate builds the canonical spec. It is total: any well-formed endpoint
// list yields a document, and the empty list yields an empty path map.
// Endpoints sharing (path, method) resolve last-write-wins in input order.
func Generate(endpoints []types.Endpoint) types.SpecDoc {
	doc := types.SpecDoc{
		OpenAPI: "3.0.3",
		Info: types.SpecInfo{
			Title:       "Discovered API",
			Description: fmt.Sprintf("Synthesized from %d discovered endpoints", len(endpoints)),
			Version:     "1.0.0",
		},
		Paths: map[string]map[string]types.Operation{},
	}
	for _, ep := range endpoints {
		if ep.Path == "" || ep.Method == "" {
			continue
		}
		methods := doc.Paths[ep.Path]
		if methods == nil {
			methods = map[string]types.Operation{}
			doc.Paths[ep.Path] = methods
		}
		methods[strings.ToLower(ep.Method)] = operationFrom(ep)
	}
	return doc
}

func operationFrom(ep types.Endpoint) types.Operation {
	op := types.Operation{
		OperationID: operationID(ep),
		Summary:     ep.Description,
		Security:    ep.AuthRequired,
		RateLimit:   ep.RateLimit,
		Responses:   map[string]any{},
	}
	for _, p := range ep.Parameters {
		if p.In == types.InBody {
			continue
		}
		op.Parameters = append(op.Parameters, types.SpecParam{
			Name:     p.Name,
			In:       string(p.In),
			Required: p.Required || p.In == types.InPath,
			Schema:   types.SpecSchema{Type: CanonicalType(p.Type)},
		})
	}
	if body := bodySchema(ep); body != nil {
		op.RequestBody = body
	}
	op.Responses[successCode(ep.Method)] = map[string]any{
		"description": "Success",
		"content": map[string]any{
			"application/json": map[string]any{"schema": responseSchema(ep)},
		},
	}
	return op
}

func bodySchema(ep types.Endpoint) *types.SpecSchema {
	props := map[string]types.SpecSchema{}
	for _, p := range ep.Parameters {
		if p.In == types.InBody {
			props[p.Name] = types.SpecSchema{Type: CanonicalType(p.Type)}
		}
	}
	if len(props) == 0 {
		if ep.Method == "POST" || ep.Method == "PUT" || ep.Method == "PATCH" {
			return &types.SpecSchema{Type: "object"}
		}
		return nil
	}
	return &types.SpecSchema{Type: "object", Properties: props}
}

// responseSchema converts a declared response description, defaulting to an
// open object when absent or unrecognized.
func responseSchema(ep types.Endpoint) types.SpecSchema {
	if len(ep.ResponseSchema) == 0 {
		return types.SpecSchema{Type: "object"}
	}
	return schemaFromAny(ep.ResponseSchema)
}

func schemaFromAny(v any) types.SpecSchema {
	switch val := v.(type) {
	case map[string]any:
		if t, ok := val["type"].(string); ok && len(val) <= 2 {
			s := types.SpecSchema{Type: CanonicalType(t)}
			if items, ok := val["items"]; ok {
				is := schemaFromAny(items)
				s.Items = &is
			}
			return s
		}
		props := map[string]types.SpecSchema{}
		for k, sub := range val {
			props[k] = schemaFromAny(sub)
		}
		return types.SpecSchema{Type: "object", Properties: props}
	case string:
		return types.SpecSchema{Type: CanonicalType(val)}
	}
	return types.SpecSchema{Type: "object"}
}

func successCode(method string) string {
	switch method {
	case "POST":
		return "201"
	case "DELETE":
		return "204"
	}
	return "200"
}

func operationID(ep types.Endpoint) string {
	if ep.HandlerName != "" {
		return ep.HandlerName
	}
	slug := strings.NewReplacer("/", "_", "{", "", "}", "").Replace(strings.Trim(ep.Path, "/"))
	if slug == "" {
		slug = "root"
	}
	return strings.ToLower(ep.Method) + "_" + slug
}
