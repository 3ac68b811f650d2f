package embedserver

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/dimagi-rad/scout-widget/pkg/embed"
)

// pageTemplate is the shell document served to embedding frames. The widget
// speaks over the message channel; the page carries just enough markup to
// render the mount point with the requested mode and theme.
var pageTemplate = template.Must(template.New("embed").Parse(`<!DOCTYPE html>
<html lang="en" data-theme="{{.Theme}}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Scout</title>
</head>
<body>
<div id="scout-root" data-mode="{{.Mode}}"{{if .Tenant}} data-tenant="{{.Tenant}}"{{end}}></div>
</body>
</html>
`))

func (s *Server) servePage(w http.ResponseWriter, r *http.Request) {
	params := embed.ResolveParams(r.URL)

	// Browsers enforce the embedder allowlist through frame-ancestors; the
	// channel upgrade enforces the same list server side.
	if len(s.config.AllowedEmbedders) > 0 {
		w.Header().Set("Content-Security-Policy", "frame-ancestors "+strings.Join(s.config.AllowedEmbedders, " "))
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if err := pageTemplate.Execute(w, params); err != nil {
		s.logger.Error().Err(err).Msg("Failed to render embed page")
	}
}
