// Package testgen turns a canonical spec into per-framework test artifacts.
// Target frameworks are data: a template table keyed by framework id, so new
// targets are added by adding a table entry, not a branch.
package testgen

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"specforge/internal/types"
)

// Options controls which artifacts are produced beyond the happy path.
type Options struct {
	// Frameworks lists target test frameworks; empty means DefaultFrameworks.
	Frameworks       []string `json:"frameworks,omitempty" yaml:"frameworks,omitempty"`
	IncludeNegative  bool     `json:"include_negative,omitempty" yaml:"include_negative,omitempty"`
	IncludeEdgeCases bool     `json:"include_edge_cases,omitempty" yaml:"include_edge_cases,omitempty"`
	IncludeLoadTests bool     `json:"include_load_tests,omitempty" yaml:"include_load_tests,omitempty"`
	// CoverageTarget is advisory; it is recorded in artifact headers.
	CoverageTarget float64 `json:"coverage_target,omitempty" yaml:"coverage_target,omitempty"`
}

// DefaultFrameworks are emitted when the caller does not choose.
var DefaultFrameworks = []string{"jest-supertest", "pytest"}

// testCase is the template input for one generated test.
type testCase struct {
	Name         string
	Kind         string // happy, negative, edge
	Method       string
	Path         string // template form, e.g. /users/{id}
	URL          string // placeholders substituted with example values
	QueryString  string
	BodyJSON     string
	ExpectStatus string
	AuthRequired bool
	Coverage     float64
}

// CreateTests produces at least one happy-path artifact per (path, method)
// and requested framework. Negative, edge and load artifacts are additive.
func CreateTests(spec types.SpecDoc, opts Options) ([]types.Artifact, error) {
	frameworks := opts.Frameworks
	if len(frameworks) == 0 {
		frameworks = DefaultFrameworks
	}
	var out []types.Artifact
	for _, fw := range frameworks {
		tpl, ok := frameworkTemplates[fw]
		if !ok {
			return nil, fmt.Errorf("testgen: unknown framework %q", fw)
		}
		for _, pm := range sortedOperations(spec) {
			cases := buildCases(pm, opts)
			content, err := tpl.render(cases)
			if err != nil {
				return nil, err
			}
			out = append(out, types.Artifact{
				Framework: fw,
				Filename:  tpl.filename(pm.path, pm.method),
				Kind:      types.ArtifactTest,
				Content:   content,
			})
		}
	}
	if opts.IncludeLoadTests {
		load, err := createLoadTests(spec)
		if err != nil {
			return nil, err
		}
		out = append(out, load...)
	}
	return out, nil
}

type pathMethod struct {
	path   string
	method string
	op     types.Operation
}

func sortedOperations(spec types.SpecDoc) []pathMethod {
	var out []pathMethod
	for p, methods := range spec.Paths {
		for m, op := range methods {
			out = append(out, pathMethod{path: p, method: strings.ToUpper(m), op: op})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].path != out[j].path {
			return out[i].path < out[j].path
		}
		return out[i].method < out[j].method
	})
	return out
}

func buildCases(pm pathMethod, opts Options) []testCase {
	base := testCase{
		Kind:         "happy",
		Name:         caseName(pm, "returns success"),
		Method:       pm.method,
		Path:         pm.path,
		URL:          exampleURL(pm.path, pm.op),
		QueryString:  exampleQuery(pm.op),
		BodyJSON:     exampleBodyJSON(pm.op),
		ExpectStatus: firstResponseCode(pm.op),
		AuthRequired: pm.op.Security,
		Coverage:     opts.CoverageTarget,
	}
	cases := []testCase{base}

	if opts.IncludeNegative {
		neg := base
		neg.Kind = "negative"
		neg.Name = caseName(pm, "rejects malformed input")
		neg.BodyJSON = `"not-an-object"`
		neg.ExpectStatus = "400"
		cases = append(cases, neg)
	}
	if opts.IncludeEdgeCases && types.IsItemPath(pm.path) {
		edge := base
		edge.Kind = "edge"
		edge.Name = caseName(pm, "handles unknown id")
		edge.URL = rePlaceholderSub(pm.path, func(string) string { return "nonexistent-0" })
		cases = append(cases, edge)
	}
	return cases
}

func caseName(pm pathMethod, suffix string) string {
	return fmt.Sprintf("%s %s %s", pm.method, pm.path, suffix)
}

func firstResponseCode(op types.Operation) string {
	codes := make([]string, 0, len(op.Responses))
	for c := range op.Responses {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	if len(codes) == 0 {
		return "200"
	}
	return codes[0]
}

// ---------------------------------------------------------------------------
// example value synthesis
// ---------------------------------------------------------------------------

// ExampleValue synthesizes a representative value for a schema node.
func ExampleValue(s types.SpecSchema) any {
	switch s.Type {
	case "integer":
		return 42
	case "number":
		return 3.14
	case "boolean":
		return true
	case "array":
		item := types.SpecSchema{Type: "string"}
		if s.Items != nil {
			item = *s.Items
		}
		return []any{ExampleValue(item)}
	case "object":
		obj := map[string]any{}
		for name, sub := range s.Properties {
			obj[name] = ExampleValue(sub)
		}
		if len(obj) == 0 {
			obj["value"] = "example"
		}
		return obj
	}
	return "example-string"
}

func exampleURL(path string, op types.Operation) string {
	byName := map[string]types.SpecSchema{}
	for _, p := range op.Parameters {
		if p.In == "path" {
			byName[p.Name] = p.Schema
		}
	}
	return rePlaceholderSub(path, func(name string) string {
		schema, ok := byName[name]
		if !ok {
			schema = types.SpecSchema{Type: "string"}
		}
		return fmt.Sprintf("%v", ExampleValue(schema))
	})
}

func exampleQuery(op types.Operation) string {
	var parts []string
	for _, p := range op.Parameters {
		if p.In != "query" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v", p.Name, ExampleValue(p.Schema)))
	}
	return strings.Join(parts, "&")
}

func exampleBodyJSON(op types.Operation) string {
	if op.RequestBody == nil {
		return ""
	}
	b, err := json.Marshal(ExampleValue(*op.RequestBody))
	if err != nil {
		return "{}"
	}
	return string(b)
}

func rePlaceholderSub(path string, fn func(name string) string) string {
	var b strings.Builder
	for {
		i := strings.Index(path, "{")
		if i < 0 {
			b.WriteString(path)
			return b.String()
		}
		j := strings.Index(path[i:], "}")
		if j < 0 {
			b.WriteString(path)
			return b.String()
		}
		b.WriteString(path[:i])
		b.WriteString(fn(path[i+1 : i+j]))
		path = path[i+j+1:]
	}
}
