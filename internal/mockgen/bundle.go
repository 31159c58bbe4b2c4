package mockgen

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"specforge/internal/types"
)

// CreateMockServer produces the deployable bundle: a standalone server
// definition, seed data, deployment descriptors and a sample endpoint list.
func CreateMockServer(spec types.SpecDoc, cfg Config) (types.MockBundle, error) {
	cfg = cfg.withDefaults()
	var bundle types.MockBundle

	server, err := renderServer(spec, cfg)
	if err != nil {
		return bundle, err
	}
	bundle.ServerDefinition = types.Artifact{
		Filename: "main.go",
		Kind:     types.ArtifactMockServer,
		Content:  server,
	}

	seed, err := seedData(spec, cfg)
	if err != nil {
		return bundle, err
	}
	bundle.SeedData = types.Artifact{
		Filename: "seed.json",
		Kind:     types.ArtifactSeedData,
		Content:  seed,
	}

	compose, err := composeYAML(cfg)
	if err != nil {
		return bundle, err
	}
	bundle.DeploymentDescriptors = []types.Artifact{
		{Filename: "Dockerfile", Kind: types.ArtifactDeploy, Content: dockerfile},
		{Filename: "docker-compose.yaml", Kind: types.ArtifactDeploy, Content: compose},
	}

	bundle.SampleEndpoints = sampleEndpoints(spec)
	return bundle, nil
}

func sampleEndpoints(spec types.SpecDoc) []string {
	var out []string
	for path, methods := range spec.Paths {
		for m := range methods {
			out = append(out, strings.ToUpper(m)+" "+path)
		}
	}
	sort.Strings(out)
	return out
}

// seedData synthesizes a page of records per collection so the generated
// server starts populated.
func seedData(spec types.SpecDoc, cfg Config) (string, error) {
	collections := map[string][]map[string]any{}
	for path, methods := range spec.Paths {
		if types.IsItemPath(path) {
			continue
		}
		name := collectionName(path)
		op, ok := methods["get"]
		if !ok {
			for _, v := range methods {
				op = v
				break
			}
		}
		if _, done := collections[name]; done {
			continue
		}
		recs := make([]map[string]any, 0, cfg.PageSize)
		for i := 1; i <= cfg.PageSize; i++ {
			rec := synthRecord(op, i, cfg.RealisticData)
			rec["id"] = fmt.Sprintf("%s-%d", name, i)
			recs = append(recs, rec)
		}
		collections[name] = recs
	}
	b, err := json.MarshalIndent(collections, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func collectionName(path string) string {
	name := "items"
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg != "" && !strings.HasPrefix(seg, "{") {
			name = seg
		}
	}
	return name
}

// composeYAML emits a docker-compose descriptor for the generated service.
func composeYAML(cfg Config) (string, error) {
	type service struct {
		Build       string   `yaml:"build"`
		Ports       []string `yaml:"ports"`
		Environment []string `yaml:"environment,omitempty"`
		Restart     string   `yaml:"restart"`
	}
	doc := map[string]any{
		"services": map[string]service{
			"mock-api": {
				Build:   ".",
				Ports:   []string{fmt.Sprintf("%d:%d", cfg.Port, cfg.Port)},
				Restart: "unless-stopped",
				Environment: []string{
					fmt.Sprintf("MOCK_PORT=%d", cfg.Port),
					fmt.Sprintf("MOCK_ERROR_RATE=%d", cfg.ErrorRatePercent),
				},
			},
		},
	}
	b, err := yaml.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

const dockerfile = `FROM golang:1.24-alpine AS build
WORKDIR /src
COPY . .
RUN go build -o /mock-server .

FROM alpine:3.20
COPY --from=build /mock-server /usr/local/bin/mock-server
COPY seed.json /etc/mock/seed.json
EXPOSE 4010
ENTRYPOINT ["mock-server", "-seed", "/etc/mock/seed.json"]
`

// serverTemplate is the standalone server definition. It embeds the route
// table as data and keeps the runtime logic generic, mirroring the in-process
// handler's semantics.
var serverTemplate = template.Must(template.New("server").Parse(`// Code generated by specforge; mock service for {{.Title}}.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

type route struct {
	Method     string
	Path       string
	Collection string
	Item       bool
}

var routes = []route{
{{- range .Routes}}
	{Method: {{printf "%q" .Method}}, Path: {{printf "%q" .Path}}, Collection: {{printf "%q" .Collection}}, Item: {{.Item}}},
{{- end}}
}

var (
	mu    sync.RWMutex
	data  = map[string]map[string]map[string]any{}
	delay = {{.DelayMs}} * time.Millisecond
	errorRate = {{.ErrorRate}}
)

func main() {
	seedPath := flag.String("seed", "seed.json", "seed data file")
	addr := flag.String("addr", "{{.Host}}:{{.Port}}", "listen address")
	flag.Parse()
	loadSeed(*seedPath)
	http.HandleFunc("/", serve)
	log.Printf("mock service listening on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, nil))
}

func loadSeed(path string) {
	b, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var seed map[string][]map[string]any
	if err := json.Unmarshal(b, &seed); err != nil {
		return
	}
	for col, recs := range seed {
		data[col] = map[string]map[string]any{}
		for _, rec := range recs {
			if id, ok := rec["id"].(string); ok {
				data[col][id] = rec
			}
		}
	}
}

func serve(w http.ResponseWriter, r *http.Request) {
	if errorRate > 0 && rand.Intn(100) < errorRate {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "injected failure"})
		return
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	for _, rt := range routes {
		if rt.Method != r.Method {
			continue
		}
		if id, ok := matchPath(rt.Path, r.URL.Path); ok {
			handle(w, r, rt, id)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"error": "no such route"})
}

func matchPath(pattern, path string) (string, bool) {
	pp := strings.Split(strings.Trim(pattern, "/"), "/")
	rp := strings.Split(strings.Trim(path, "/"), "/")
	if len(pp) != len(rp) {
		return "", false
	}
	id := ""
	for i := range pp {
		if strings.HasPrefix(pp[i], "{") {
			id = rp[i]
			continue
		}
		if pp[i] != rp[i] {
			return "", false
		}
	}
	return id, true
}

func handle(w http.ResponseWriter, r *http.Request, rt route, id string) {
	mu.Lock()
	defer mu.Unlock()
	col := data[rt.Collection]
	if col == nil {
		col = map[string]map[string]any{}
		data[rt.Collection] = col
	}
	switch {
	case !rt.Item && r.Method == http.MethodPost:
		rec := decodeBody(r)
		rec["id"] = fmt.Sprintf("%s-%d", rt.Collection, len(col)+1)
		now := time.Now().UTC().Format(time.RFC3339)
		rec["created_at"], rec["updated_at"] = now, now
		col[rec["id"].(string)] = rec
		writeJSON(w, http.StatusCreated, rec)
	case !rt.Item:
		recs := make([]map[string]any, 0, len(col))
		for _, rec := range col {
			recs = append(recs, rec)
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": recs, "total": len(recs)})
	case r.Method == http.MethodGet:
		if rec, ok := col[id]; ok {
			writeJSON(w, http.StatusOK, rec)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "value": "placeholder"})
	case r.Method == http.MethodPut || r.Method == http.MethodPatch:
		rec, ok := col[id]
		if !ok {
			rec = map[string]any{"id": id}
			col[id] = rec
		}
		for k, v := range decodeBody(r) {
			if k != "id" {
				rec[k] = v
			}
		}
		rec["updated_at"] = time.Now().UTC().Format(time.RFC3339)
		writeJSON(w, http.StatusOK, rec)
	case r.Method == http.MethodDelete:
		delete(col, id)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
	}
}

func decodeBody(r *http.Request) map[string]any {
	var body map[string]any
	if r.Body != nil {
		defer r.Body.Close()
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	if body == nil {
		body = map[string]any{}
	}
	return body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
`))

type serverTemplateInput struct {
	Title     string
	Host      string
	Port      int
	DelayMs   int64
	ErrorRate int
	Routes    []route2
}

type route2 struct {
	Method     string
	Path       string
	Collection string
	Item       bool
}

func renderServer(spec types.SpecDoc, cfg Config) (string, error) {
	in := serverTemplateInput{
		Title:     spec.Info.Title,
		Host:      cfg.Host,
		Port:      cfg.Port,
		DelayMs:   cfg.ResponseDelay.Milliseconds(),
		ErrorRate: cfg.ErrorRatePercent,
	}
	for path, methods := range spec.Paths {
		for m := range methods {
			in.Routes = append(in.Routes, route2{
				Method:     strings.ToUpper(m),
				Path:       path,
				Collection: collectionName(path),
				Item:       types.IsItemPath(path),
			})
		}
	}
	sort.Slice(in.Routes, func(i, j int) bool {
		if in.Routes[i].Path != in.Routes[j].Path {
			return in.Routes[i].Path < in.Routes[j].Path
		}
		return in.Routes[i].Method < in.Routes[j].Method
	})
	var b strings.Builder
	if err := serverTemplate.Execute(&b, in); err != nil {
		return "", fmt.Errorf("mockgen: render server: %w", err)
	}
	return b.String(), nil
}
