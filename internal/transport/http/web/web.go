package web

import (
	"embed"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer serves the embedded storefront views through Echo.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	t, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: t}, nil
}

// Render implements echo.Renderer.
func (r *Renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

// Module wires the view renderer into the Echo instance.
var Module = fx.Options(
	fx.Provide(NewRenderer),
	fx.Invoke(func(e *echo.Echo, r *Renderer) {
		e.Renderer = r
	}),
)
