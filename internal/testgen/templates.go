package testgen

import (
	"fmt"
	"strings"
	"text/template"

	"specforge/internal/types"
)

// frameworkTemplate pairs a filename rule with a text template rendering a
// case list into one test file.
type frameworkTemplate struct {
	ext  string
	pre  string // filename prefix, e.g. "test_" for pytest
	tmpl *template.Template
}

func (ft frameworkTemplate) filename(path, method string) string {
	return ft.pre + fileSlug(path, method) + ft.ext
}

func (ft frameworkTemplate) render(cases []testCase) (string, error) {
	var b strings.Builder
	if err := ft.tmpl.Execute(&b, cases); err != nil {
		return "", err
	}
	return b.String(), nil
}

func fileSlug(path, method string) string {
	slug := strings.NewReplacer("/", "_", "{", "", "}", "").Replace(strings.Trim(path, "/"))
	if slug == "" {
		slug = "root"
	}
	return strings.ToLower(method) + "_" + slug
}

func mustTemplate(name, body string) *template.Template {
	return template.Must(template.New(name).Funcs(template.FuncMap{
		"lower": strings.ToLower,
		"title": func(s string) string {
			if s == "" {
				return s
			}
			return strings.ToUpper(s[:1]) + s[1:]
		},
		"goname": goTestName,
		"k6method": func(m string) string {
			if strings.EqualFold(m, "DELETE") {
				return "del"
			}
			return strings.ToLower(m)
		},
	}).Parse(body))
}

func goTestName(s string) string {
	var b strings.Builder
	up := true
	for _, r := range s {
		switch {
		case r == ' ' || r == '/' || r == '{' || r == '}' || r == '-':
			up = true
		case up:
			b.WriteString(strings.ToUpper(string(r)))
			up = false
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// frameworkTemplates is the target table. Adding a framework means adding an
// entry here.
var frameworkTemplates = map[string]frameworkTemplate{
	"jest-supertest": {
		ext: ".test.js",
		tmpl: mustTemplate("jest", `const request = require('supertest');
const app = require('../app');
{{with index . 0}}{{if .Coverage}}
// coverage target: {{.Coverage}}
{{end}}{{end}}
{{range .}}// {{.Kind}}: {{.Name}}
test({{printf "%q" .Name}}, async () => {
  const res = await request(app)
    .{{lower .Method}}('{{.URL}}{{if .QueryString}}?{{.QueryString}}{{end}}'){{if .BodyJSON}}
    .send({{.BodyJSON}}){{end}}{{if .AuthRequired}}
    .set('Authorization', 'Bearer ' + process.env.TEST_TOKEN){{end}};
  expect(res.status).toBe({{.ExpectStatus}});
});

{{end}}`),
	},
	"pytest": {
		ext: ".py",
		pre: "test_",
		tmpl: mustTemplate("pytest", `import pytest


{{range $i, $c := .}}def test_{{$c.Kind}}_{{$i}}(client):
    """{{$c.Name}}"""
    resp = client.{{lower $c.Method}}(
        "{{$c.URL}}{{if $c.QueryString}}?{{$c.QueryString}}{{end}}",{{if $c.BodyJSON}}
        json={{$c.BodyJSON}},{{end}}{{if $c.AuthRequired}}
        headers={"Authorization": "Bearer test-token"},{{end}}
    )
    assert resp.status_code == {{$c.ExpectStatus}}


{{end}}`),
	},
	"go-httptest": {
		ext: "_test.go",
		tmpl: mustTemplate("gotest", `package apitest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

{{range .}}// {{.Kind}}: {{.Name}}
func Test{{goname .Name}}(t *testing.T) {
	srv := httptest.NewServer(newHandler())
	defer srv.Close()

	req, err := http.NewRequest("{{.Method}}", srv.URL+"{{.URL}}{{if .QueryString}}?{{.QueryString}}{{end}}", {{if .BodyJSON}}strings.NewReader({{printf "%q" .BodyJSON}}){{else}}nil{{end}})
	if err != nil {
		t.Fatal(err)
	}{{if .AuthRequired}}
	req.Header.Set("Authorization", "Bearer test-token"){{end}}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != {{.ExpectStatus}} {
		t.Fatalf("status = %d, want {{.ExpectStatus}}", resp.StatusCode)
	}
}

{{end}}`),
	},
}

var k6Template = mustTemplate("k6", `import http from 'k6/http';
import { check, sleep } from 'k6';

export const options = {
  vus: 10,
  duration: '30s',
};

export default function () {
{{range .}}  {
    const res = http.{{k6method .Method}}(` + "`${__ENV.BASE_URL}{{.URL}}`" + `{{if .BodyJSON}}, JSON.stringify({{.BodyJSON}}), { headers: { 'Content-Type': 'application/json' } }{{end}});
    check(res, { '{{.Method}} {{.Path}} ok': (r) => r.status < 500 });
  }
{{end}}  sleep(1);
}
`)

// createLoadTests emits one k6 scenario covering every operation.
func createLoadTests(spec types.SpecDoc) ([]types.Artifact, error) {
	ops := sortedOperations(spec)
	if len(ops) == 0 {
		return nil, nil
	}
	cases := make([]testCase, 0, len(ops))
	for _, pm := range ops {
		cases = append(cases, testCase{
			Method:   pm.method,
			Path:     pm.path,
			URL:      exampleURL(pm.path, pm.op),
			BodyJSON: exampleBodyJSON(pm.op),
		})
	}
	var b strings.Builder
	if err := k6Template.Execute(&b, cases); err != nil {
		return nil, fmt.Errorf("testgen: render k6: %w", err)
	}
	return []types.Artifact{{
		Framework: "k6",
		Filename:  "load_test.js",
		Kind:      types.ArtifactLoadTest,
		Content:   b.String(),
	}}, nil
}
