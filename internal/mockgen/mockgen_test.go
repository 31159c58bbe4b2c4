package mockgen

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"specforge/internal/types"
)

func crudSpec() types.SpecDoc {
	return types.SpecDoc{
		OpenAPI: "3.0.3",
		Paths: map[string]map[string]types.Operation{
			"/users": {
				"get": {Parameters: []types.SpecParam{
					{Name: "limit", In: "query", Schema: types.SpecSchema{Type: "integer"}},
					{Name: "offset", In: "query", Schema: types.SpecSchema{Type: "integer"}},
				}},
				"post": {RequestBody: &types.SpecSchema{Type: "object"}},
			},
			"/users/{id}": {
				"get":    {},
				"put":    {},
				"delete": {},
			},
			"/users/me": {
				"get": {},
			},
		},
	}
}

func doJSON(t *testing.T, srv *httptest.Server, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestCreateThenReadRoundTrip(t *testing.T) {
	srv := httptest.NewServer(NewHandler(crudSpec(), Config{}))
	defer srv.Close()

	resp, created := doJSON(t, srv, http.MethodPost, "/users", map[string]any{"name": "ada"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatalf("created record has no id: %v", created)
	}
	if created["created_at"] == nil || created["updated_at"] == nil {
		t.Fatalf("timestamps missing: %v", created)
	}

	resp, got := doJSON(t, srv, http.MethodGet, "/users/"+id, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("read status = %d", resp.StatusCode)
	}
	if got["name"] != "ada" {
		t.Fatalf("stored field lost: %v", got)
	}
}

func TestUpdatePreservesIdentity(t *testing.T) {
	srv := httptest.NewServer(NewHandler(crudSpec(), Config{}))
	defer srv.Close()

	_, created := doJSON(t, srv, http.MethodPost, "/users", map[string]any{"name": "ada"})
	id := created["id"].(string)

	resp, updated := doJSON(t, srv, http.MethodPut, "/users/"+id, map[string]any{
		"name": "grace", "id": "spoofed", "created_at": "1999-01-01",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d", resp.StatusCode)
	}
	if updated["name"] != "grace" {
		t.Fatalf("update not applied: %v", updated)
	}
	if updated["id"] != id {
		t.Fatalf("id must be immutable, got %v", updated["id"])
	}
	if updated["created_at"] == "1999-01-01" {
		t.Fatalf("created_at must be immutable")
	}
}

func TestDeleteThenMissPolicy(t *testing.T) {
	notFound := Config{OnMiss: MissNotFound}
	srv := httptest.NewServer(NewHandler(crudSpec(), notFound))
	defer srv.Close()

	_, created := doJSON(t, srv, http.MethodPost, "/users", map[string]any{"name": "ada"})
	id := created["id"].(string)

	resp, _ := doJSON(t, srv, http.MethodDelete, "/users/"+id, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, srv, http.MethodGet, "/users/"+id, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("strict miss policy must 404, got %d", resp.StatusCode)
	}
}

func TestPlaceholderOnMiss(t *testing.T) {
	srv := httptest.NewServer(NewHandler(crudSpec(), Config{}))
	defer srv.Close()

	// Default policy synthesizes a record for unknown ids.
	resp, got := doJSON(t, srv, http.MethodGet, "/users/ghost-1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("placeholder miss status = %d", resp.StatusCode)
	}
	if got["id"] != "ghost-1" {
		t.Fatalf("placeholder must echo the requested id: %v", got)
	}
}

// On nested routes the record is keyed by the innermost placeholder, never
// by whichever map entry iteration happens to yield.
func TestNestedRouteKeysByLastPlaceholder(t *testing.T) {
	spec := types.SpecDoc{
		OpenAPI: "3.0.3",
		Paths: map[string]map[string]types.Operation{
			"/users/{uid}/posts/{pid}": {"get": {}},
		},
	}
	srv := httptest.NewServer(NewHandler(spec, Config{}))
	defer srv.Close()

	for i := 0; i < 10; i++ {
		resp, got := doJSON(t, srv, http.MethodGet, "/users/7/posts/42", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("nested read status = %d", resp.StatusCode)
		}
		if got["id"] != "42" {
			t.Fatalf("record keyed by wrong placeholder: %v", got)
		}
	}
}

func TestErrorRateAlwaysFails(t *testing.T) {
	srv := httptest.NewServer(NewHandler(crudSpec(), Config{ErrorRatePercent: 100}))
	defer srv.Close()

	for i := 0; i < 5; i++ {
		resp, body := doJSON(t, srv, http.MethodGet, "/users", nil)
		if resp.StatusCode != http.StatusInternalServerError {
			t.Fatalf("expected injected failure, got %d", resp.StatusCode)
		}
		if body["error"] != "injected failure" {
			t.Fatalf("unexpected error body: %v", body)
		}
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	srv := httptest.NewServer(NewHandler(crudSpec(), Config{}))
	defer srv.Close()

	resp, _ := doJSON(t, srv, http.MethodGet, "/nope", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown route status = %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, srv, http.MethodPatch, "/users", nil)
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("undeclared method status = %d", resp.StatusCode)
	}
}

func TestLiteralRouteOutranksPlaceholder(t *testing.T) {
	srv := httptest.NewServer(NewHandler(crudSpec(), Config{OnMiss: MissNotFound}))
	defer srv.Close()

	// /users/me is declared literally and must not be captured by
	// /users/{id}; a collection-style 200 proves the literal route won.
	resp, _ := doJSON(t, srv, http.MethodGet, "/users/me", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("literal route not matched first: %d", resp.StatusCode)
	}
}

func TestPaginationHonorsDeclaredParams(t *testing.T) {
	srv := httptest.NewServer(NewHandler(crudSpec(), Config{}))
	defer srv.Close()

	for i := 0; i < 5; i++ {
		doJSON(t, srv, http.MethodPost, "/users", map[string]any{"n": i})
	}
	resp, body := doJSON(t, srv, http.MethodGet, "/users?limit=2&offset=3", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	data, _ := body["data"].([]any)
	if len(data) != 2 {
		t.Fatalf("expected 2 records, got %d", len(data))
	}
	if body["total"] != float64(5) {
		t.Fatalf("total = %v", body["total"])
	}
}

func TestStatelessSynthesizedList(t *testing.T) {
	off := false
	srv := httptest.NewServer(NewHandler(crudSpec(), Config{Stateful: &off, PageSize: 3}))
	defer srv.Close()

	resp, body := doJSON(t, srv, http.MethodGet, "/users", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	data, _ := body["data"].([]any)
	if len(data) != 3 {
		t.Fatalf("synthesized page size = %d", len(data))
	}
}

func TestRateLimitReturns429(t *testing.T) {
	spec := types.SpecDoc{Paths: map[string]map[string]types.Operation{
		"/busy": {"get": {RateLimit: 2}},
	}}
	srv := httptest.NewServer(NewHandler(spec, Config{}))
	defer srv.Close()

	var limited bool
	for i := 0; i < 10; i++ {
		resp, _ := doJSON(t, srv, http.MethodGet, "/busy", nil)
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Fatalf("burst beyond the declared limit never hit 429")
	}
}

func TestCreateMockServerBundle(t *testing.T) {
	bundle, err := CreateMockServer(crudSpec(), Config{Port: 5000})
	if err != nil {
		t.Fatalf("create mock server: %v", err)
	}
	if bundle.ServerDefinition.Kind != types.ArtifactMockServer {
		t.Fatalf("unexpected server artifact: %+v", bundle.ServerDefinition)
	}
	if !strings.Contains(bundle.ServerDefinition.Content, "package main") {
		t.Fatalf("server definition is not a Go program")
	}
	if bundle.SeedData.Kind != types.ArtifactSeedData {
		t.Fatalf("unexpected seed artifact: %+v", bundle.SeedData)
	}
	var seed map[string][]map[string]any
	if err := json.Unmarshal([]byte(bundle.SeedData.Content), &seed); err != nil {
		t.Fatalf("seed data is not valid JSON: %v", err)
	}
	if len(seed["users"]) == 0 {
		t.Fatalf("expected seeded users collection: %v", seed)
	}
	if len(bundle.DeploymentDescriptors) == 0 {
		t.Fatalf("deployment descriptors missing")
	}
	if len(bundle.SampleEndpoints) == 0 {
		t.Fatalf("sample endpoints missing")
	}
	for i := 1; i < len(bundle.SampleEndpoints); i++ {
		if bundle.SampleEndpoints[i-1] > bundle.SampleEndpoints[i] {
			t.Fatalf("sample endpoints not sorted: %v", bundle.SampleEndpoints)
		}
	}
}

func TestStoreInsertionOrderPaging(t *testing.T) {
	s := newStore()
	for i := 0; i < 4; i++ {
		s.create("things", map[string]any{"n": i})
	}
	page := s.page("things", 2, 1)
	if len(page) != 2 {
		t.Fatalf("page length = %d", len(page))
	}
	if page[0]["n"] != 1 || page[1]["n"] != 2 {
		t.Fatalf("insertion order not preserved: %v", page)
	}
	if s.page("things", 10, 99) != nil {
		t.Fatalf("offset past end must yield nil")
	}
}
