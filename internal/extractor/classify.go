package extractor

import (
	"path/filepath"
	"strings"

	"specforge/internal/types"
)

// predicate reports whether src looks like a given framework's idiom.
type predicate struct {
	kind  types.FrameworkKind
	match func(src string) bool
}

// classifiers maps a file extension to its priority-ordered predicate list.
// The first match wins, so more specific signatures come first (FastAPI
// before Flask, both being Python decorators).
var classifiers = map[string][]predicate{
	".go": {
		{types.FrameworkGoHTTP, func(s string) bool {
			return strings.Contains(s, `"net/http"`) ||
				strings.Contains(s, "github.com/gin-gonic/gin") ||
				strings.Contains(s, "github.com/labstack/echo") ||
				strings.Contains(s, "github.com/go-chi/chi")
		}},
	},
	".py": {
		{types.FrameworkFastAPI, func(s string) bool {
			return strings.Contains(s, "from fastapi") || strings.Contains(s, "FastAPI(")
		}},
		{types.FrameworkFlask, func(s string) bool {
			return strings.Contains(s, "from flask") || strings.Contains(s, "Flask(")
		}},
		{types.FrameworkDjango, func(s string) bool {
			return strings.Contains(s, "urlpatterns") || strings.Contains(s, "django.urls")
		}},
	},
	".js": {
		{types.FrameworkExpress, isExpress},
	},
	".mjs": {
		{types.FrameworkExpress, isExpress},
	},
	".ts": {
		{types.FrameworkExpress, isExpress},
	},
	".rb": {
		{types.FrameworkRails, func(s string) bool {
			return strings.Contains(s, "Rails.application.routes") || strings.Contains(s, "routes.draw")
		}},
	},
	".java": {
		{types.FrameworkSpring, isSpring},
	},
	".kt": {
		{types.FrameworkSpring, isSpring},
	},
}

func isExpress(s string) bool {
	return strings.Contains(s, "require('express')") ||
		strings.Contains(s, `require("express")`) ||
		strings.Contains(s, "from 'express'") ||
		strings.Contains(s, `from "express"`) ||
		strings.Contains(s, "express.Router(")
}

func isSpring(s string) bool {
	return strings.Contains(s, "@RestController") ||
		strings.Contains(s, "@Controller") ||
		strings.Contains(s, "org.springframework.web")
}

// Classify maps a file to the framework idiom it declares routes in, or
// FrameworkNone when unrecognized.
func Classify(path string, src []byte) types.FrameworkKind {
	ext := strings.ToLower(filepath.Ext(path))
	preds, ok := classifiers[ext]
	if !ok {
		return types.FrameworkNone
	}
	s := string(src)
	for _, p := range preds {
		if p.match(s) {
			return p.kind
		}
	}
	return types.FrameworkNone
}
