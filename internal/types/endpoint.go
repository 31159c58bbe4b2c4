package types

import (
	"sort"
	"strings"
	"time"
)

// Framework / idiom tags ----------------------------------------------------------

// FrameworkKind identifies the route-declaration idiom a source file uses.
type FrameworkKind string

const (
	FrameworkNone    FrameworkKind = ""
	FrameworkGoHTTP  FrameworkKind = "go-http"
	FrameworkExpress FrameworkKind = "express"
	FrameworkFlask   FrameworkKind = "flask"
	FrameworkFastAPI FrameworkKind = "fastapi"
	FrameworkDjango  FrameworkKind = "django"
	FrameworkRails   FrameworkKind = "rails"
	FrameworkSpring  FrameworkKind = "spring"
)

// ParamLocation says where a parameter travels in the request.
type ParamLocation string

const (
	InQuery ParamLocation = "query"
	InPath  ParamLocation = "path"
	InBody  ParamLocation = "body"
)

// Parameter is one declared input of an endpoint.
type Parameter struct {
	Name     string        `json:"name"`
	In       ParamLocation `json:"in"`
	Type     string        `json:"type"`
	Required bool          `json:"required,omitempty"`
}

// Endpoint -----------------------------------------------------------------------

// Endpoint is the canonical record of one HTTP operation found in source.
// (Method, Path) is the dedup key within a discovery run.
type Endpoint struct {
	Path           string         `json:"path"`
	Method         string         `json:"method"`
	HandlerName    string         `json:"handler_name,omitempty"`
	Parameters     []Parameter    `json:"parameters,omitempty"`
	ResponseSchema map[string]any `json:"response_schema,omitempty"`
	Description    string         `json:"description,omitempty"`
	AuthRequired   bool           `json:"auth_required,omitempty"`
	RateLimit      int            `json:"rate_limit,omitempty"`
	Framework      FrameworkKind  `json:"framework,omitempty"`
	SourceFile     string         `json:"source_file,omitempty"`
}

// Key returns the dedup key for registry maps.
func (e Endpoint) Key() string { return e.Method + " " + e.Path }

// IsItemPath reports whether a path template addresses a single record
// (contains at least one placeholder segment).
func IsItemPath(path string) bool { return strings.Contains(path, "{") }

// IsItem is IsItemPath over the endpoint's own path.
func (e Endpoint) IsItem() bool { return IsItemPath(e.Path) }

// HTTPMethods is the fixed verb set discovery recognizes.
var HTTPMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true,
	"DELETE": true, "HEAD": true, "OPTIONS": true,
}

// SortEndpoints orders endpoints by path then method for deterministic output.
func SortEndpoints(list []Endpoint) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Path != list[j].Path {
			return list[i].Path < list[j].Path
		}
		return list[i].Method < list[j].Method
	})
}

// AgentMessage -------------------------------------------------------------------

// AgentMessage is an inter-stage notification queued on the orchestrator.
type AgentMessage struct {
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Action    string    `json:"action"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
