package extractor

import (
	"regexp"
	"strings"

	"specforge/internal/types"
)

func init() {
	Register(types.FrameworkExpress, extractExpress)
	Register(types.FrameworkFlask, extractFlask)
	Register(types.FrameworkFastAPI, extractFastAPI)
	Register(types.FrameworkDjango, extractDjango)
	Register(types.FrameworkRails, extractRails)
	Register(types.FrameworkSpring, extractSpring)
}

// Pattern-based strategy: ordered text patterns matching verb-call shapes.
// Each extractor scans line by line so it can pick up adjacent comments and
// decorators, then normalizes to the shared Endpoint shape.

var (
	reExpressRoute = regexp.MustCompile(`(?:\w+)\.(get|post|put|patch|delete|head|options)\s*\(\s*['"]([^'"]+)['"]\s*(?:,\s*([\w.]+))?`)
	reFlaskRoute   = regexp.MustCompile(`@[\w.]+\.route\(\s*['"]([^'"]+)['"](?:.*methods\s*=\s*\[([^\]]*)\])?`)
	reFlaskVerb    = regexp.MustCompile(`@[\w.]+\.(get|post|put|patch|delete)\(\s*['"]([^'"]+)['"]`)
	rePyDef        = regexp.MustCompile(`^\s*(?:async\s+)?def\s+(\w+)\s*\(([^)]*)`)
	reDjangoPath   = regexp.MustCompile(`(?:re_)?path\(\s*r?['"]([^'"]+)['"]\s*,\s*([\w.]+)`)
	reRailsRoute   = regexp.MustCompile(`^\s*(get|post|put|patch|delete)\s+['"]([^'"]+)['"](?:.*to:\s*['"]([^'"#]+)#?(\w+)?['"])?`)
	reRailsRes     = regexp.MustCompile(`^\s*resources\s+:(\w+)`)
	reSpringMap    = regexp.MustCompile(`@(Get|Post|Put|Patch|Delete|Request)Mapping\s*\(\s*(?:value\s*=\s*)?['"]([^'"]+)['"]`)
	reJavaMethod   = regexp.MustCompile(`(?:public|private|protected)?\s*[\w<>\[\],\s]+\s+(\w+)\s*\(`)
	reRateLimit    = regexp.MustCompile(`(?i)(?:limit|rate_?limit|throttle)\D*(\d+)`)
	reLineComment  = regexp.MustCompile(`^\s*(?://|#)\s?(.*)`)
)

var authMarkers = []string{
	"login_required", "requires_auth", "authenticate", "requireauth",
	"isauthenticated", "@preauthorize", "jwt_required", "verifytoken",
}

func containsAuthMarker(line string) bool {
	low := strings.ToLower(line)
	for _, m := range authMarkers {
		if strings.Contains(low, m) {
			return true
		}
	}
	return false
}

// context accumulated while scanning toward a route declaration.
type lineContext struct {
	comment   string
	auth      bool
	rateLimit int
}

func (c *lineContext) absorb(line string) {
	if m := reLineComment.FindStringSubmatch(line); m != nil {
		c.comment = strings.TrimSpace(m[1])
		return
	}
	if containsAuthMarker(line) {
		c.auth = true
	}
	if m := reRateLimit.FindStringSubmatch(line); m != nil && strings.HasPrefix(strings.TrimSpace(line), "@") {
		if n := atoiSafe(m[1]); n > 0 {
			c.rateLimit = n
		}
	}
}

func (c *lineContext) apply(ep types.Endpoint) types.Endpoint {
	ep.Description = c.comment
	ep.AuthRequired = ep.AuthRequired || c.auth
	ep.RateLimit = c.rateLimit
	return ep
}

func (c *lineContext) reset() { *c = lineContext{} }

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// ---------------------------------------------------------------------------
// Express / generic router-call JavaScript
// ---------------------------------------------------------------------------

func extractExpress(_ string, src []byte) ([]types.Endpoint, error) {
	var out []types.Endpoint
	var ctx lineContext
	for _, line := range strings.Split(string(src), "\n") {
		if m := reExpressRoute.FindStringSubmatch(line); m != nil {
			ep := types.Endpoint{
				Method:       m[1],
				HandlerName:  strings.TrimPrefix(m[3], "."),
				AuthRequired: containsAuthMarker(line),
			}
			out = append(out, ctx.apply(normalize(ep, m[2])))
			ctx.reset()
			continue
		}
		ctx.absorb(line)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Flask: @app.route decorators, optionally followed by def <handler>(...)
// ---------------------------------------------------------------------------

func extractFlask(_ string, src []byte) ([]types.Endpoint, error) {
	lines := strings.Split(string(src), "\n")
	var out []types.Endpoint
	var ctx lineContext
	for i, line := range lines {
		var rawPath string
		var methods []string
		if m := reFlaskRoute.FindStringSubmatch(line); m != nil {
			rawPath = m[1]
			methods = splitMethods(m[2])
		} else if m := reFlaskVerb.FindStringSubmatch(line); m != nil {
			rawPath = m[2]
			methods = []string{m[1]}
		} else {
			ctx.absorb(line)
			continue
		}
		handler, params := pythonHandlerAfter(lines, i+1)
		for _, method := range methods {
			ep := types.Endpoint{Method: method, HandlerName: handler, Parameters: params}
			out = append(out, ctx.apply(normalize(ep, rawPath)))
		}
		ctx.reset()
	}
	return out, nil
}

func splitMethods(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{"GET"}
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		m := strings.Trim(strings.TrimSpace(part), `'"`)
		if m != "" {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		out = []string{"GET"}
	}
	return out
}

// pythonHandlerAfter finds the next def below a decorator stack and maps its
// parameters (minus self/cls and request-like names) to query parameters.
// Parameters whose names later match a path placeholder are re-homed by
// normalize's dedup.
func pythonHandlerAfter(lines []string, from int) (string, []types.Parameter) {
	for i := from; i < len(lines) && i < from+8; i++ {
		m := rePyDef.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		var params []types.Parameter
		for _, raw := range strings.Split(m[2], ",") {
			name, typ := pythonParam(raw)
			if name == "" {
				continue
			}
			params = append(params, types.Parameter{Name: name, In: types.InQuery, Type: typ})
		}
		return m[1], params
	}
	return "", nil
}

func pythonParam(raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}
	// strip defaults then annotations
	if i := strings.Index(raw, "="); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	name, annot := raw, ""
	if i := strings.Index(raw, ":"); i >= 0 {
		name = strings.TrimSpace(raw[:i])
		annot = strings.TrimSpace(raw[i+1:])
	}
	switch name {
	case "self", "cls", "request", "req", "*args", "**kwargs", "*", "":
		return "", ""
	}
	if strings.HasPrefix(name, "*") {
		return "", ""
	}
	return name, canonicalPyType(annot)
}

func canonicalPyType(annot string) string {
	switch strings.ToLower(annot) {
	case "int":
		return "integer"
	case "float":
		return "number"
	case "bool":
		return "boolean"
	case "list":
		return "array"
	case "dict":
		return "object"
	}
	return "string"
}

// ---------------------------------------------------------------------------
// FastAPI: same decorator shape as Flask's verb form.
// ---------------------------------------------------------------------------

func extractFastAPI(_ string, src []byte) ([]types.Endpoint, error) {
	lines := strings.Split(string(src), "\n")
	var out []types.Endpoint
	var ctx lineContext
	for i, line := range lines {
		m := reFlaskVerb.FindStringSubmatch(line)
		if m == nil {
			ctx.absorb(line)
			continue
		}
		handler, params := pythonHandlerAfter(lines, i+1)
		ep := types.Endpoint{Method: m[1], HandlerName: handler, Parameters: params}
		out = append(out, ctx.apply(normalize(ep, m[2])))
		ctx.reset()
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Django: path("users/<int:pk>/", views.detail) entries in urlpatterns.
// Method is not declared at the URL table, so GET is recorded.
// ---------------------------------------------------------------------------

func extractDjango(_ string, src []byte) ([]types.Endpoint, error) {
	var out []types.Endpoint
	for _, m := range reDjangoPath.FindAllStringSubmatch(string(src), -1) {
		ep := types.Endpoint{Method: "GET", HandlerName: m[2]}
		out = append(out, normalize(ep, m[1]))
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Rails: verb routes plus `resources :things` CRUD expansion.
// ---------------------------------------------------------------------------

func extractRails(_ string, src []byte) ([]types.Endpoint, error) {
	var out []types.Endpoint
	for _, line := range strings.Split(string(src), "\n") {
		if m := reRailsRoute.FindStringSubmatch(line); m != nil {
			ep := types.Endpoint{Method: m[1], HandlerName: m[4]}
			out = append(out, normalize(ep, m[2]))
			continue
		}
		if m := reRailsRes.FindStringSubmatch(line); m != nil {
			out = append(out, railsResourceRoutes(m[1])...)
		}
	}
	return out, nil
}

func railsResourceRoutes(name string) []types.Endpoint {
	col := "/" + name
	item := col + "/{id}"
	mk := func(method, raw, handler string) types.Endpoint {
		return normalize(types.Endpoint{Method: method, HandlerName: handler}, raw)
	}
	return []types.Endpoint{
		mk("GET", col, "index"),
		mk("POST", col, "create"),
		mk("GET", item, "show"),
		mk("PUT", item, "update"),
		mk("PATCH", item, "update"),
		mk("DELETE", item, "destroy"),
	}
}

// ---------------------------------------------------------------------------
// Spring: @GetMapping("/users") style annotations above Java/Kotlin methods.
// ---------------------------------------------------------------------------

func extractSpring(_ string, src []byte) ([]types.Endpoint, error) {
	lines := strings.Split(string(src), "\n")
	var out []types.Endpoint
	var ctx lineContext
	for i, line := range lines {
		m := reSpringMap.FindStringSubmatch(line)
		if m == nil {
			ctx.absorb(line)
			continue
		}
		method := m[1]
		if method == "Request" {
			method = "GET"
		}
		ep := types.Endpoint{Method: method, HandlerName: javaMethodAfter(lines, i+1)}
		out = append(out, ctx.apply(normalize(ep, m[2])))
		ctx.reset()
	}
	return out, nil
}

func javaMethodAfter(lines []string, from int) string {
	for i := from; i < len(lines) && i < from+6; i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "@") {
			continue
		}
		if m := reJavaMethod.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}
