// Package web embeds the HTML templates and static assets into the binary,
// so the server runs from any working directory and tests need no files on disk.
package web

import "embed"

//go:embed templates/*.html static
var FS embed.FS
