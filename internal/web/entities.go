package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/healthsphere/admin/internal/form"
	"github.com/healthsphere/admin/internal/platform/apiclient"
	"github.com/healthsphere/admin/internal/registry"
	"github.com/healthsphere/admin/pkg/pagination"
)

// listPage is the model of the list template.
type listPage struct {
	Entity  *registry.Entity
	Title   string
	Headers []string
	Rows    []listRow
	Error   string
	Page    pagination.Page
	Next    string
	Prev    string
	// Return brings edit and delete back to the page the row was on.
	Return string
}

type listRow struct {
	ID    int64
	Cells []string
}

func (p listPage) PageTitle() string { return p.Title }

// List fetches the collection and renders one row per record. A failed
// fetch renders the page with the error instead of rows.
func (h *Handler) List(ent *registry.Entity) echo.HandlerFunc {
	return func(c echo.Context) error {
		page := listPage{Entity: ent, Title: ent.Config.ListTitle}
		for _, col := range ent.Columns {
			page.Headers = append(page.Headers, col.Title)
		}

		records, err := h.registry.Store(ent).List(h.ctx(c))
		if err != nil {
			h.logger.Error().Err(err).Str("entity", ent.Name).Msg("list failed")
			page.Error = "Failed to load " + ent.Name + ": " + apiclient.Message(err)
			return c.Render(statusOf(err), "list", page)
		}

		base := "/" + ent.Name
		window, pg := pagination.Slice(records, pagination.FromContext(c))
		query := c.QueryParams()
		page.Page = pg
		page.Next = pg.NextURL(base, query)
		page.Prev = pg.PreviousURL(base, query)
		page.Return = c.Request().URL.RequestURI()

		for _, rec := range window {
			id, err := ent.RecordID(rec)
			if err != nil {
				h.logger.Warn().Err(err).Str("entity", ent.Name).Msg("skipping record")
				continue
			}
			row := listRow{ID: id}
			for _, col := range ent.Columns {
				if col.Render != nil {
					row.Cells = append(row.Cells, col.Render(rec))
				} else {
					row.Cells = append(row.Cells, rec.String(col.Key))
				}
			}
			page.Rows = append(page.Rows, row)
		}
		return c.Render(http.StatusOK, "list", page)
	}
}

// formPage is the model of the form template.
type formPage struct {
	Entity     *registry.Entity
	Title      string
	Action     string
	Cancel     string
	SaveText   string
	Controls   []form.Control
	Panels     []form.Panel
	PanelTitle string
	Error      string
	// Success is set while a created record's message is shown before the
	// delayed redirect.
	Success  string
	Redirect string
	Delay    float64
}

func (p formPage) PageTitle() string { return p.Title }

func (h *Handler) session(c echo.Context, ent *registry.Entity, mode form.Mode, id int64) *form.Session {
	opts := h.registry.SessionOptions(ent, mode, id)
	opts.Redirect = localPath(c.QueryParam("return"), opts.Redirect)
	opts.AddDelay = h.addDelay
	opts.Logger = h.logger
	return form.NewSession(ent.Config, opts)
}

func (h *Handler) formPage(c echo.Context, ent *registry.Entity, sess *form.Session) formPage {
	cfg := ent.Config
	page := formPage{
		Entity:   ent,
		Title:    cfg.Title,
		Action:   c.Request().URL.RequestURI(),
		Cancel:   localPath(c.QueryParam("return"), "/"+ent.Name),
		SaveText: cfg.SaveButtonText,
		Controls: sess.Controls(),
		Error:    sess.Invalid(),
	}
	if sess.Mode() == form.ModeEdit {
		page.Title = cfg.EditTitle
		page.SaveText = "Update " + strings.ToUpper(ent.Singular[:1]) + ent.Singular[1:]
		page.Panels = sess.Panels()
		page.PanelTitle = cfg.RelatedDataTitle
	}
	if err := sess.SaveErr(); err != nil && page.Error == "" {
		page.Error = apiclient.Message(err)
	}
	return page
}

// New renders an empty add form. Dependent options load in parallel.
func (h *Handler) New(ent *registry.Entity) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess := h.session(c, ent, form.ModeAdd, 0)
		if err := sess.Load(h.ctx(c)); err != nil {
			return h.renderError(c, err, ent.Config.Title, "/"+ent.Name)
		}
		return c.Render(http.StatusOK, "form", h.formPage(c, ent, sess))
	}
}

// Create applies the posted fields to a fresh add session and saves it.
func (h *Handler) Create(ent *registry.Entity) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess := h.session(c, ent, form.ModeAdd, 0)
		if err := sess.Load(h.ctx(c)); err != nil {
			return h.renderError(c, err, ent.Config.Title, "/"+ent.Name)
		}
		return h.submit(c, ent, sess)
	}
}

// Edit loads the record and renders it with its related panels.
func (h *Handler) Edit(ent *registry.Entity) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
		}
		sess := h.session(c, ent, form.ModeEdit, id)
		if err := sess.Load(h.ctx(c)); err != nil {
			return h.renderError(c, err, ent.Config.EditTitle, "/"+ent.Name)
		}
		return c.Render(http.StatusOK, "form", h.formPage(c, ent, sess))
	}
}

// Update reloads the record, applies the posted fields and saves.
func (h *Handler) Update(ent *registry.Entity) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
		}
		sess := h.session(c, ent, form.ModeEdit, id)
		if err := sess.Load(h.ctx(c)); err != nil {
			return h.renderError(c, err, ent.Config.EditTitle, "/"+ent.Name)
		}
		return h.submit(c, ent, sess)
	}
}

func (h *Handler) submit(c echo.Context, ent *registry.Entity, sess *form.Session) error {
	params, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed form")
	}
	for _, f := range ent.Config.Fields {
		values, ok := params[f.Name]
		if !ok || len(values) == 0 {
			continue
		}
		if err := sess.Set(f.Name, values[0]); err != nil && !errors.Is(err, form.ErrReadOnlyField) {
			return err
		}
	}

	outcome, err := sess.Save(h.ctx(c))
	if err != nil {
		return c.Render(statusOf(err), "form", h.formPage(c, ent, sess))
	}

	action := "created"
	if sess.Mode() == form.ModeEdit {
		action = "updated"
	}
	h.publish(c, ent.Resource, action, sess.ID())
	h.logger.Info().Str("entity", ent.Name).Str("action", action).Int64("id", sess.ID()).Msg("record saved")
	outcome.Redirect = refreshOnReturn(outcome.Redirect, ent.Resource)

	if outcome.Delay > 0 {
		page := h.formPage(c, ent, sess)
		page.Success = outcome.Message
		page.Redirect = outcome.Redirect
		page.Delay = outcome.Delay.Seconds()
		return c.Render(http.StatusOK, "form", page)
	}
	setFlash(c, FlashSuccess, outcome.Message)
	return c.Redirect(http.StatusSeeOther, outcome.Redirect)
}

// Delete removes the record and reloads the list. Failures are flashed and
// the list stays as it was.
func (h *Handler) Delete(ent *registry.Entity) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
		}
		back := localPath(c.QueryParam("return"), "/"+ent.Name)
		label := strings.ToUpper(ent.Singular[:1]) + ent.Singular[1:]

		if err := h.registry.Store(ent).Delete(h.ctx(c), id); err != nil {
			h.logger.Warn().Err(err).Str("entity", ent.Name).Int64("id", id).Msg("delete failed")
			setFlash(c, FlashError, "Failed to delete "+ent.Singular+": "+apiclient.Message(err))
			return c.Redirect(http.StatusSeeOther, back)
		}

		h.publish(c, ent.Resource, "deleted", id)
		setFlash(c, FlashSuccess, label+" deleted successfully!")
		return c.Redirect(http.StatusSeeOther, refreshOnReturn(back, deleteTouches(ent.Resource)...))
	}
}

// deleteTouches lists the collections a delete changes on the backend:
// patients take their treatments along, wards release their doctors.
func deleteTouches(resource string) []string {
	switch resource {
	case apiclient.Patients:
		return []string{apiclient.Patients, apiclient.Treatments}
	case apiclient.Wards:
		return []string{apiclient.Wards, apiclient.Doctors}
	}
	return []string{resource}
}

// returnTo builds a link that comes back to the current page after the
// target form is done.
func returnTo(target, current string) string {
	return target + "?return=" + url.QueryEscape(current)
}
