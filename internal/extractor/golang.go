package extractor

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"

	"specforge/internal/types"
)

func init() {
	Register(types.FrameworkGoHTTP, extractGo)
}

// extractGo is the structured strategy: parse the file into an AST, walk
// call expressions whose selector is an HTTP-verb alias, and take the first
// string-literal argument as the path template.
func extractGo(path string, src []byte) ([]types.Endpoint, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	handlers := collectHandlerDecls(file)
	var out []types.Endpoint

	ast.Inspect(file, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok || len(call.Args) == 0 {
			return true
		}

		method := verbFromAlias(sel.Sel.Name)
		rawPath, lit := stringArg(call.Args[0])

		// Go 1.22 mux pattern: HandleFunc("GET /users/{id}", h).
		if method == "" && (sel.Sel.Name == "HandleFunc" || sel.Sel.Name == "Handle") && lit {
			if verb, rest, found := strings.Cut(rawPath, " "); found && types.HTTPMethods[strings.ToUpper(verb)] {
				method = strings.ToUpper(verb)
				rawPath = rest
			}
		}
		if method == "" || !lit || rawPath == "" {
			return true
		}

		ep := types.Endpoint{Method: method}
		if len(call.Args) > 1 {
			ep.HandlerName = exprName(call.Args[len(call.Args)-1])
		}
		if h, ok := handlers[ep.HandlerName]; ok {
			ep.Description = h.doc
			ep.Parameters = h.params
		}
		ep.AuthRequired = hasAuthMiddleware(call)
		out = append(out, normalize(ep, rawPath))
		return true
	})
	return out, nil
}

type handlerDecl struct {
	doc    string
	params []types.Parameter
}

// collectHandlerDecls indexes top-level functions by name so routes can pick
// up the handler's doc comment and any plain-value parameters.
func collectHandlerDecls(file *ast.File) map[string]handlerDecl {
	out := map[string]handlerDecl{}
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		h := handlerDecl{}
		if fn.Doc != nil {
			h.doc = strings.TrimSpace(fn.Doc.Text())
		}
		if fn.Type.Params != nil {
			for _, field := range fn.Type.Params.List {
				typ := typeName(field.Type)
				if isTransportParam(typ) {
					continue
				}
				for _, name := range field.Names {
					h.params = append(h.params, types.Parameter{
						Name: name.Name,
						In:   types.InQuery,
						Type: canonicalGoType(typ),
					})
				}
			}
		}
		out[fn.Name.Name] = h
	}
	return out
}

// isTransportParam filters receiver-like arguments: request/response plumbing
// rather than user inputs.
func isTransportParam(typ string) bool {
	switch {
	case strings.Contains(typ, "http.ResponseWriter"),
		strings.Contains(typ, "http.Request"),
		strings.Contains(typ, "context.Context"),
		strings.Contains(typ, "gin.Context"),
		strings.Contains(typ, "echo.Context"):
		return true
	}
	return false
}

func canonicalGoType(typ string) string {
	switch strings.TrimPrefix(typ, "*") {
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
		return "integer"
	case "float32", "float64":
		return "number"
	case "bool":
		return "boolean"
	case "string":
		return "string"
	}
	return "string"
}

// hasAuthMiddleware checks trailing non-handler args for auth-ish middleware
// identifiers. Heuristic only; false means "not detected", not "absent".
func hasAuthMiddleware(call *ast.CallExpr) bool {
	for _, arg := range call.Args[1:] {
		name := strings.ToLower(exprName(arg))
		if strings.Contains(name, "auth") || strings.Contains(name, "jwt") {
			return true
		}
	}
	return false
}

func stringArg(expr ast.Expr) (string, bool) {
	bl, ok := expr.(*ast.BasicLit)
	if !ok || bl.Kind != token.STRING {
		return "", false
	}
	s, err := strconv.Unquote(bl.Value)
	if err != nil {
		return "", false
	}
	return s, true
}

func exprName(expr ast.Expr) string {
	switch v := expr.(type) {
	case *ast.Ident:
		return v.Name
	case *ast.SelectorExpr:
		return v.Sel.Name
	case *ast.CallExpr:
		return exprName(v.Fun)
	}
	return ""
}

func typeName(expr ast.Expr) string {
	switch v := expr.(type) {
	case *ast.Ident:
		return v.Name
	case *ast.StarExpr:
		return "*" + typeName(v.X)
	case *ast.SelectorExpr:
		return typeName(v.X) + "." + v.Sel.Name
	}
	return ""
}
