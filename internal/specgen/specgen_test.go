package specgen

import (
	"testing"

	"specforge/internal/types"
)

func TestGenerateEmpty(t *testing.T) {
	doc := Generate(nil)
	if doc.OpenAPI != "3.0.3" {
		t.Fatalf("unexpected version: %q", doc.OpenAPI)
	}
	if doc.Paths == nil {
		t.Fatalf("Paths must be an empty map, not nil")
	}
	if doc.OperationCount() != 0 {
		t.Fatalf("expected 0 operations, got %d", doc.OperationCount())
	}
}

func TestGenerateGroupsByPath(t *testing.T) {
	doc := Generate([]types.Endpoint{
		{Method: "GET", Path: "/users"},
		{Method: "POST", Path: "/users"},
		{Method: "GET", Path: "/users/{id}"},
	})
	if len(doc.Paths) != 2 {
		t.Fatalf("expected 2 paths, got %d", len(doc.Paths))
	}
	ops := doc.Paths["/users"]
	if len(ops) != 2 {
		t.Fatalf("expected get+post under /users, got %v", ops)
	}
	if _, ok := ops["get"]; !ok {
		t.Fatalf("method keys must be lowercase: %v", ops)
	}
}

func TestGenerateLastWriteWins(t *testing.T) {
	doc := Generate([]types.Endpoint{
		{Method: "GET", Path: "/dup", HandlerName: "first"},
		{Method: "GET", Path: "/dup", HandlerName: "second"},
	})
	op := doc.Paths["/dup"]["get"]
	if op.OperationID != "second" {
		t.Fatalf("expected last write to win, got %q", op.OperationID)
	}
	if doc.OperationCount() != 1 {
		t.Fatalf("duplicate must collapse to one operation")
	}
}

func TestGenerateSkipsMalformed(t *testing.T) {
	doc := Generate([]types.Endpoint{
		{Method: "", Path: "/x"},
		{Method: "GET", Path: ""},
		{Method: "GET", Path: "/ok"},
	})
	if doc.OperationCount() != 1 {
		t.Fatalf("expected only the well-formed endpoint, got %d", doc.OperationCount())
	}
}

func TestOperationParameters(t *testing.T) {
	doc := Generate([]types.Endpoint{{
		Method: "GET",
		Path:   "/items/{id}",
		Parameters: []types.Parameter{
			{Name: "id", In: types.InPath, Type: "int"},
			{Name: "q", In: types.InQuery, Type: "string"},
		},
	}})
	op := doc.Paths["/items/{id}"]["get"]
	if len(op.Parameters) != 2 {
		t.Fatalf("expected 2 parameters, got %+v", op.Parameters)
	}
	id := op.Parameters[0]
	if !id.Required {
		t.Fatalf("path parameters are always required")
	}
	if id.Schema.Type != "integer" {
		t.Fatalf("type not canonicalized: %q", id.Schema.Type)
	}
}

func TestOperationBodyAndResponses(t *testing.T) {
	doc := Generate([]types.Endpoint{
		{Method: "POST", Path: "/items", Parameters: []types.Parameter{
			{Name: "name", In: types.InBody, Type: "string"},
		}},
		{Method: "DELETE", Path: "/items/{id}"},
		{Method: "PUT", Path: "/items/{id}"},
	})

	post := doc.Paths["/items"]["post"]
	if post.RequestBody == nil || post.RequestBody.Properties["name"].Type != "string" {
		t.Fatalf("body params must form the request body: %+v", post.RequestBody)
	}
	if _, ok := post.Responses["201"]; !ok {
		t.Fatalf("POST success must be 201: %v", post.Responses)
	}

	del := doc.Paths["/items/{id}"]["delete"]
	if _, ok := del.Responses["204"]; !ok {
		t.Fatalf("DELETE success must be 204: %v", del.Responses)
	}
	if del.RequestBody != nil {
		t.Fatalf("DELETE must not get a synthesized body")
	}

	put := doc.Paths["/items/{id}"]["put"]
	if put.RequestBody == nil || put.RequestBody.Type != "object" {
		t.Fatalf("PUT without body params still gets an open object body")
	}
}

func TestSecurityAndRateLimitCarried(t *testing.T) {
	doc := Generate([]types.Endpoint{
		{Method: "GET", Path: "/admin", AuthRequired: true, RateLimit: 50},
	})
	op := doc.Paths["/admin"]["get"]
	if !op.Security || op.RateLimit != 50 {
		t.Fatalf("auth/rate-limit flags dropped: %+v", op)
	}
}

func TestCanonicalType(t *testing.T) {
	cases := map[string]string{
		"int": "integer", "long": "integer", "Float": "number",
		"bool": "boolean", "list": "array", "dict": "object",
		"uuid": "string", "": "string", "STRING": "string",
	}
	for in, want := range cases {
		if got := CanonicalType(in); got != want {
			t.Fatalf("CanonicalType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOperationIDFallback(t *testing.T) {
	doc := Generate([]types.Endpoint{
		{Method: "GET", Path: "/users/{id}/posts"},
		{Method: "GET", Path: "/"},
	})
	if got := doc.Paths["/users/{id}/posts"]["get"].OperationID; got != "get_users_id_posts" {
		t.Fatalf("unexpected operation id: %q", got)
	}
	if got := doc.Paths["/"]["get"].OperationID; got != "get_root" {
		t.Fatalf("unexpected root operation id: %q", got)
	}
}
