package extractor

import (
	"regexp"
	"strings"

	"specforge/internal/types"
)

var (
	reColonParam  = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)`)       // /users/:id
	reAngleParam  = regexp.MustCompile(`<(?:([a-z]+):)?([A-Za-z_][A-Za-z0-9_]*)>`) // /users/<int:id>
	rePlaceholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)
)

// NormalizePath rewrites any supported placeholder syntax to the canonical
// "{name}" form, guarantees a leading slash and strips a trailing one.
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	p = reColonParam.ReplaceAllString(p, "{$1}")
	p = reAngleParam.ReplaceAllString(p, "{$2}")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

// pathParamTypes remembers converter hints lost by NormalizePath
// ("<int:id>" says id is an integer).
func pathParamTypes(raw string) map[string]string {
	out := map[string]string{}
	for _, m := range reAngleParam.FindAllStringSubmatch(raw, -1) {
		conv, name := m[1], m[2]
		switch conv {
		case "int":
			out[name] = "integer"
		case "float":
			out[name] = "number"
		default:
			out[name] = "string"
		}
	}
	return out
}

// normalize finalizes an endpoint extracted by any strategy: uppercase
// method, canonical path, and path-placeholder parameters merged in.
func normalize(e types.Endpoint, rawPath string) types.Endpoint {
	e.Method = strings.ToUpper(strings.TrimSpace(e.Method))
	e.Path = NormalizePath(rawPath)

	hints := pathParamTypes(rawPath)
	byName := map[string]int{}
	for i, p := range e.Parameters {
		byName[p.Name] = i
	}
	for _, m := range rePlaceholder.FindAllStringSubmatch(e.Path, -1) {
		name := m[1]
		// A declared parameter matching a placeholder is a path parameter,
		// whatever location the extractor guessed.
		if i, ok := byName[name]; ok {
			e.Parameters[i].In = types.InPath
			e.Parameters[i].Required = true
			if hint := hints[name]; hint != "" && hint != "string" {
				e.Parameters[i].Type = hint
			}
			continue
		}
		typ := hints[name]
		if typ == "" {
			typ = "string"
		}
		e.Parameters = append(e.Parameters, types.Parameter{
			Name: name, In: types.InPath, Type: typ, Required: true,
		})
	}
	return e
}

// verbFromAlias canonicalizes a method alias ("get", "Get", "GET", "GetMapping")
// to an uppercase HTTP verb, or "" when the name is not a verb alias.
func verbFromAlias(name string) string {
	name = strings.TrimSuffix(name, "Mapping")
	v := strings.ToUpper(name)
	if types.HTTPMethods[v] {
		return v
	}
	return ""
}
