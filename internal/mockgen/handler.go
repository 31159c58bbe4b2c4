package mockgen

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"specforge/internal/types"
)

// route is one compiled (path, method) entry of the mock router.
type route struct {
	segments   []segment
	collection string
	item       bool
	methods    map[string]types.Operation
	limiter    *rate.Limiter
}

type segment struct {
	literal string
	param   string // placeholder name; empty for literal segments
}

// mockHandler serves a spec as a live stateful service.
type mockHandler struct {
	cfg    Config
	routes []*route
	store  *store
	rand   *rand.Rand
}

// NewHandler builds a runnable mock for the spec. The returned handler can be
// mounted directly or wrapped in httptest for round-trip tests.
func NewHandler(spec types.SpecDoc, cfg Config) http.Handler {
	cfg = cfg.withDefaults()
	h := &mockHandler{
		cfg:   cfg,
		store: newStore(),
		rand:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for path, methods := range spec.Paths {
		r := compileRoute(path, methods)
		h.routes = append(h.routes, r)
	}
	// Literal routes outrank placeholder routes so /users/me is never
	// captured by /users/{id}.
	sort.SliceStable(h.routes, func(i, j int) bool {
		pi, pj := paramCount(h.routes[i]), paramCount(h.routes[j])
		if pi != pj {
			return pi < pj
		}
		return routePath(h.routes[i]) < routePath(h.routes[j])
	})
	return h
}

func paramCount(r *route) int {
	n := 0
	for _, s := range r.segments {
		if s.param != "" {
			n++
		}
	}
	return n
}

func routePath(r *route) string {
	parts := make([]string, 0, len(r.segments))
	for _, s := range r.segments {
		if s.param != "" {
			parts = append(parts, "{"+s.param+"}")
		} else {
			parts = append(parts, s.literal)
		}
	}
	return "/" + strings.Join(parts, "/")
}

func compileRoute(path string, methods map[string]types.Operation) *route {
	r := &route{methods: map[string]types.Operation{}}
	collection := "items"
	for _, raw := range strings.Split(strings.Trim(path, "/"), "/") {
		if raw == "" {
			continue
		}
		if strings.HasPrefix(raw, "{") && strings.HasSuffix(raw, "}") {
			r.segments = append(r.segments, segment{param: strings.Trim(raw, "{}")})
			r.item = true
		} else {
			r.segments = append(r.segments, segment{literal: raw})
			collection = raw
		}
	}
	r.collection = collection
	maxLimit := 0
	for m, op := range methods {
		r.methods[strings.ToUpper(m)] = op
		if op.RateLimit > maxLimit {
			maxLimit = op.RateLimit
		}
	}
	if maxLimit > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(maxLimit), maxLimit)
	}
	return r
}

func (r *route) match(path string) (map[string]string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if path == "/" || strings.Trim(path, "/") == "" {
		parts = nil
	}
	if len(parts) != len(r.segments) {
		return nil, false
	}
	params := map[string]string{}
	for i, seg := range r.segments {
		if seg.param != "" {
			params[seg.param] = parts[i]
			continue
		}
		if seg.literal != parts[i] {
			return nil, false
		}
	}
	return params, true
}

func (h *mockHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var matched *route
	var params map[string]string
	for _, r := range h.routes {
		if p, ok := r.match(req.URL.Path); ok {
			matched = r
			params = p
			break
		}
	}
	if matched == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "no such route"})
		return
	}
	op, ok := matched.methods[req.Method]
	if !ok {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}

	if matched.limiter != nil && !matched.limiter.Allow() {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{"error": "rate limit exceeded"})
		return
	}

	// Every handler rolls against the error rate before doing real work.
	if h.cfg.ErrorRatePercent > 0 && h.rand.Intn(100) < h.cfg.ErrorRatePercent {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "injected failure"})
		return
	}
	if h.cfg.ResponseDelay > 0 {
		time.Sleep(h.cfg.ResponseDelay)
	}

	if matched.item {
		h.serveItem(w, req, matched, op, params)
		return
	}
	h.serveCollection(w, req, matched, op)
}

// serveCollection handles paths without placeholders: list and create.
func (h *mockHandler) serveCollection(w http.ResponseWriter, req *http.Request, r *route, op types.Operation) {
	switch req.Method {
	case http.MethodPost:
		body := readBody(req)
		if h.cfg.stateful() {
			rec := h.store.create(r.collection, body)
			writeJSON(w, http.StatusCreated, rec)
			return
		}
		writeJSON(w, http.StatusCreated, synthRecord(op, 1, h.cfg.RealisticData))
	default:
		limit, offset := h.pagination(req, op)
		if h.cfg.stateful() && h.store.count(r.collection) > 0 {
			recs := h.store.page(r.collection, limit, offset)
			writeJSON(w, http.StatusOK, map[string]any{
				"data": recs, "limit": limit, "offset": offset,
				"total": h.store.count(r.collection),
			})
			return
		}
		recs := make([]record, 0, limit)
		for i := 0; i < limit; i++ {
			rec := synthRecord(op, offset+i+1, h.cfg.RealisticData)
			rec["id"] = strconv.Itoa(offset + i + 1)
			recs = append(recs, rec)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"data": recs, "limit": limit, "offset": offset, "total": limit,
		})
	}
}

// serveItem handles placeholder paths: read, update, delete.
func (h *mockHandler) serveItem(w http.ResponseWriter, req *http.Request, r *route, op types.Operation, params map[string]string) {
	// The last placeholder segment keys the record, so nested routes like
	// /users/{uid}/posts/{pid} address the innermost resource.
	id := ""
	for _, seg := range r.segments {
		if seg.param != "" {
			id = params[seg.param]
		}
	}
	switch req.Method {
	case http.MethodGet, http.MethodHead:
		if rec, ok := h.store.get(r.collection, id); ok {
			writeJSON(w, http.StatusOK, rec)
			return
		}
		if h.cfg.stateful() && h.cfg.OnMiss == MissPlaceholder {
			rec := synthRecord(op, 1, h.cfg.RealisticData)
			rec["id"] = id
			writeJSON(w, http.StatusOK, rec)
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found", "id": id})
	case http.MethodPut, http.MethodPatch:
		rec := h.store.update(r.collection, id, readBody(req))
		writeJSON(w, http.StatusOK, rec)
	case http.MethodDelete:
		h.store.delete(r.collection, id)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
	}
}

// pagination honors declared limit/offset query parameters; endpoints without
// them page at the configured default size.
func (h *mockHandler) pagination(req *http.Request, op types.Operation) (limit, offset int) {
	limit = h.cfg.PageSize
	declared := map[string]bool{}
	for _, p := range op.Parameters {
		if p.In == "query" {
			declared[p.Name] = true
		}
	}
	if declared["limit"] {
		if v, err := strconv.Atoi(req.URL.Query().Get("limit")); err == nil && v > 0 {
			limit = v
		}
	}
	if declared["offset"] {
		if v, err := strconv.Atoi(req.URL.Query().Get("offset")); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

func readBody(req *http.Request) map[string]any {
	var body map[string]any
	if req.Body == nil {
		return map[string]any{}
	}
	defer req.Body.Close()
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body == nil {
		return map[string]any{}
	}
	return body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
