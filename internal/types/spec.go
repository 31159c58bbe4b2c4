package types

// Canonical spec document ---------------------------------------------------------

// SpecDoc is the deduplicated, canonical description of every discovered
// endpoint, grouped by path and keyed by lowercase method. Its shape follows
// OpenAPI 3 closely enough to be consumed by standard tooling.
type SpecDoc struct {
	OpenAPI string                          `json:"openapi"`
	Info    SpecInfo                        `json:"info"`
	Paths   map[string]map[string]Operation `json:"paths"`
}

type SpecInfo struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
}

// Operation describes one (path, method) entry in the spec.
type Operation struct {
	OperationID string         `json:"operationId,omitempty"`
	Summary     string         `json:"summary,omitempty"`
	Parameters  []SpecParam    `json:"parameters,omitempty"`
	RequestBody *SpecSchema    `json:"requestBody,omitempty"`
	Responses   map[string]any `json:"responses"`
	Security    bool           `json:"x-auth-required,omitempty"`
	RateLimit   int            `json:"x-rate-limit,omitempty"`
}

type SpecParam struct {
	Name     string     `json:"name"`
	In       string     `json:"in"`
	Required bool       `json:"required,omitempty"`
	Schema   SpecSchema `json:"schema"`
}

// SpecSchema is a minimal structural schema over the canonical type set
// (string, integer, number, boolean, array, object).
type SpecSchema struct {
	Type       string                `json:"type"`
	Items      *SpecSchema           `json:"items,omitempty"`
	Properties map[string]SpecSchema `json:"properties,omitempty"`
}

// OperationCount returns the number of (path, method) entries.
func (s SpecDoc) OperationCount() int {
	n := 0
	for _, ops := range s.Paths {
		n += len(ops)
	}
	return n
}
