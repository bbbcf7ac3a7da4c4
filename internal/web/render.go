package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const layoutFile = "templates/layout.html"

// Renderer executes page templates inside the shared layout. Each page is
// parsed once at startup together with its own copy of the layout.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: map[string]*template.Template{}}
	for _, f := range files {
		if f == layoutFile {
			continue
		}
		name := strings.TrimSuffix(path.Base(f), ".html")
		tmpl, err := template.New("layout").ParseFS(templateFS, layoutFile, f)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// layoutData wraps every page with the values the layout needs.
type layoutData struct {
	Data      any
	Title     string
	CSRFToken string
	Flash     *Flash
	Nav       []navItem
	Path      string
}

type navItem struct {
	Href  string
	Label string
}

// titled is implemented by page models that set the document title.
type titled interface {
	PageTitle() string
}

// Render implements echo.Renderer. It consumes the pending flash message.
func (r *Renderer) Render(w io.Writer, name string, data any, c echo.Context) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	token, _ := c.Get(csrfContextKey).(string)
	wrapper := layoutData{
		Data:      data,
		Title:     "HealthSphere",
		CSRFToken: token,
		Flash:     popFlash(c),
		Nav:       navigation,
		Path:      c.Request().URL.Path,
	}
	if t, ok := data.(titled); ok {
		wrapper.Title = t.PageTitle() + " | HealthSphere"
	}
	return tmpl.ExecuteTemplate(w, "layout", wrapper)
}

var navigation = []navItem{
	{Href: "/dashboard/secretary", Label: "Secretary"},
	{Href: "/dashboard/doctor", Label: "Doctor"},
	{Href: "/patients", Label: "Patients"},
	{Href: "/doctors", Label: "Doctors"},
	{Href: "/treatments", Label: "Treatments"},
	{Href: "/wards", Label: "Wards"},
}
