// Package web embeds the HTML templates used for rendered reports.
package web

import "embed"

//go:embed templates/*.html
var Templates embed.FS
