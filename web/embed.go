// Package web carries the dashboard's HTML templates and static assets.
package web

import "embed"

// TemplatesFS holds the page templates; base.html defines the shared
// header, footer and field error snippets.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the chart script.
//
//go:embed static/*
var StaticFS embed.FS
