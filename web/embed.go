// Package web holds the page templates and browser assets compiled into
// the server binary.
package web

import "embed"

// TemplatesFS holds the page and the htmx partials.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the small event script.
//
//go:embed static/*
var StaticFS embed.FS
