// Package web embeds the page templates and static assets served by the
// fintrack UI.
package web

import "embed"

// TemplatesFS holds the layout and one template file per page.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and the notification script.
//
//go:embed static/*
var StaticFS embed.FS
