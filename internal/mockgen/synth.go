package mockgen

import (
	"fmt"
	"strings"

	"specforge/internal/types"
)

// realisticByName maps common field names to plausible values. Used when
// RealisticData is on; otherwise values come from the type table alone.
var realisticByName = map[string]any{
	"name":       "Alex Rivera",
	"email":      "alex.rivera@example.com",
	"username":   "arivera",
	"title":      "Example title",
	"phone":      "+1-555-0100",
	"city":       "Springfield",
	"country":    "US",
	"status":     "active",
	"created_at": "2024-01-01T00:00:00Z",
}

// synthValue produces an example value for one schema node.
func synthValue(name string, s types.SpecSchema, realistic bool) any {
	if realistic {
		if v, ok := realisticByName[strings.ToLower(name)]; ok {
			return v
		}
	}
	switch s.Type {
	case "integer":
		return 1
	case "number":
		return 1.5
	case "boolean":
		return true
	case "array":
		item := types.SpecSchema{Type: "string"}
		if s.Items != nil {
			item = *s.Items
		}
		return []any{synthValue(name, item, realistic)}
	case "object":
		return synthObject(s, realistic)
	}
	if realistic {
		return "sample " + name
	}
	return "string"
}

func synthObject(s types.SpecSchema, realistic bool) map[string]any {
	obj := map[string]any{}
	for name, sub := range s.Properties {
		obj[name] = synthValue(name, sub, realistic)
	}
	if len(obj) == 0 {
		obj["value"] = synthValue("value", types.SpecSchema{Type: "string"}, realistic)
	}
	return obj
}

// synthRecord builds one record for an operation's response schema, falling
// back to a generic shape when the spec has no structural description.
func synthRecord(op types.Operation, n int, realistic bool) map[string]any {
	schema := responseObjectSchema(op)
	rec := synthObject(schema, realistic)
	if _, ok := rec["name"]; !ok && realistic {
		rec["name"] = fmt.Sprintf("Sample record %d", n)
	}
	return rec
}

// responseObjectSchema digs the success-response schema out of an operation.
func responseObjectSchema(op types.Operation) types.SpecSchema {
	for _, code := range []string{"200", "201"} {
		raw, ok := op.Responses[code]
		if !ok {
			continue
		}
		if s := schemaFromResponse(raw); s != nil {
			// Collection responses wrap the item schema in an array.
			if s.Type == "array" && s.Items != nil {
				return *s.Items
			}
			return *s
		}
	}
	return types.SpecSchema{Type: "object"}
}

func schemaFromResponse(raw any) *types.SpecSchema {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	content, ok := m["content"].(map[string]any)
	if !ok {
		return nil
	}
	appJSON, ok := content["application/json"].(map[string]any)
	if !ok {
		return nil
	}
	switch s := appJSON["schema"].(type) {
	case types.SpecSchema:
		return &s
	case *types.SpecSchema:
		return s
	}
	return nil
}
