package web

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/healthsphere/admin/internal/dashboard"
	"github.com/healthsphere/admin/internal/domain/hospital"
	"github.com/healthsphere/admin/internal/platform/apiclient"
)

// Secretary dashboard tabs.
const (
	TabPatients   = "patients"
	TabDoctors    = "doctors"
	TabTreatments = "treatments"
	TabWards      = "wards"
	TabCalendar   = "calendar"
)

var tabs = []navItem{
	{Href: TabPatients, Label: "Patients"},
	{Href: TabDoctors, Label: "Doctors"},
	{Href: TabTreatments, Label: "Treatments"},
	{Href: TabWards, Label: "Wards"},
	{Href: TabCalendar, Label: "Calendar"},
}

func validTab(tab string) string {
	for _, t := range tabs {
		if t.Href == tab {
			return tab
		}
	}
	return TabPatients
}

// snapshot returns the cached snapshot named by the snap query parameter,
// refreshed when refresh names a collection, or loads a new one. The
// returned id is the cache key of the snapshot shown.
// secretaryPath is the dashboard a form may return to.
const secretaryPath = "/dashboard/secretary"

// refreshOnReturn asks a cached secretary dashboard to re-fetch the given
// collections when target leads back to it. Other targets are unchanged.
func refreshOnReturn(target string, resources ...string) string {
	u, err := url.Parse(target)
	if err != nil || u.Path != secretaryPath {
		return target
	}
	q := u.Query()
	if q.Get("snap") == "" {
		return target
	}
	q.Set("refresh", strings.Join(resources, ","))
	u.RawQuery = q.Encode()
	return u.String()
}

func (h *Handler) snapshot(c echo.Context) (*dashboard.Snapshot, string, string, error) {
	ctx := h.ctx(c)
	id := c.QueryParam("snap")
	if id != "" {
		if snap, ok := h.snapshots.Get(id); ok {
			refresh := c.QueryParam("refresh")
			if refresh == "" {
				return snap, id, "", nil
			}
			for _, resource := range strings.Split(refresh, ",") {
				next, err := dashboard.Refresh(ctx, h.source, snap, resource, h.logger)
				if err != nil {
					h.logger.Warn().Err(err).Str("collection", resource).Msg("dashboard refresh failed")
					return snap, id, "Could not refresh " + resource + ": " + apiclient.Message(err), nil
				}
				snap = next
				h.snapshots.Replace(id, snap)
			}
			return snap, id, "", nil
		}
	}
	snap, err := dashboard.Load(ctx, h.source, h.logger)
	if err != nil {
		return nil, "", "", err
	}
	return snap, h.snapshots.Put(snap), "", nil
}

type patientRow struct {
	Patient  hospital.Patient
	WardName string
	EditURL  string
}

type doctorRow struct {
	Doctor   hospital.Doctor
	WardName string
	EditURL  string
}

type treatmentRow struct {
	Treatment   hospital.Treatment
	Date        string
	PatientName string
	DoctorName  string
	Color       string
	EditURL     string
}

type wardRow struct {
	Ward     hospital.Ward
	Capacity *hospital.WardCapacity
	EditURL  string
}

// secretaryPage is the model of the secretary template.
type secretaryPage struct {
	Tab      string
	Tabs     []navItem
	SnapID   string
	Error    string
	Warning  string
	Stats    dashboard.Stats
	LoadedAt string

	Filter      dashboard.Filter
	Departments []string
	Wards       []hospital.Ward
	Doctors     []hospital.Doctor
	Patients    []hospital.Patient

	PatientRows   []patientRow
	DoctorRows    []doctorRow
	TreatmentRows []treatmentRow
	WardRows      []wardRow
	CapacityError string

	Calendar       dashboard.Grid
	CalendarFilter dashboard.CalendarFilter
	Weekdays       []string
	PrevRef        string
	NextRef        string

	query url.Values
}

func (p secretaryPage) PageTitle() string { return "Secretary Dashboard" }

// Link returns the dashboard URL with the given key/value pairs replaced.
// An empty value removes the key.
func (p secretaryPage) Link(pairs ...string) string {
	q := url.Values{}
	for k, v := range p.query {
		q[k] = append([]string(nil), v...)
	}
	q.Del("refresh")
	q.Set("snap", p.SnapID)
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			q.Del(pairs[i])
			continue
		}
		q.Set(pairs[i], pairs[i+1])
	}
	return secretaryPath + "?" + q.Encode()
}

// Self is the current dashboard URL, used as return target of forms.
func (p secretaryPage) Self() string { return p.Link() }

// Secretary renders the secretary dashboard. The four collections load
// fail-fast; a failure renders only the error state.
func (h *Handler) Secretary(c echo.Context) error {
	q := c.QueryParams()
	page := secretaryPage{
		Tab:      validTab(q.Get("tab")),
		Tabs:     tabs,
		Weekdays: dashboard.Weekdays,
		query:    q,
		Filter: dashboard.Filter{
			Search:        q.Get("q"),
			Department:    q.Get("department"),
			Ward:          q.Get("ward"),
			TreatmentType: q.Get("type"),
			DateFrom:      q.Get("from"),
			DateTo:        q.Get("to"),
		},
		CalendarFilter: dashboard.CalendarFilter{
			Doctor:  q.Get("cal_doctor"),
			Patient: q.Get("cal_patient"),
			Ward:    q.Get("cal_ward"),
		},
	}
	if q.Get("clear") != "" {
		page.Filter.Clear()
		for _, k := range []string{"q", "department", "ward", "type", "from", "to", "clear"} {
			page.query.Del(k)
		}
	}

	snap, id, warning, err := h.snapshot(c)
	if err != nil {
		h.logger.Error().Err(err).Msg("dashboard load failed")
		page.Error = "Failed to load dashboard data: " + apiclient.Message(err)
		return c.Render(statusOf(err), "secretary", page)
	}
	page.SnapID = id
	page.Warning = warning
	page.Stats = snap.Stats()
	page.LoadedAt = snap.LoadedAt.Format("15:04:05")
	page.Departments = dashboard.Departments(snap.Doctors)
	page.Wards = snap.Wards
	page.Doctors = snap.Doctors
	page.Patients = snap.Patients

	self := page.Self()
	palette := snap.Palette()
	switch page.Tab {
	case TabPatients:
		for _, p := range page.Filter.Patients(snap.Patients) {
			page.PatientRows = append(page.PatientRows, patientRow{
				Patient:  p,
				WardName: snap.WardName(p.WardID),
				EditURL:  returnTo(fmt.Sprintf("/patients/%d/edit", p.PersonID), self),
			})
		}
	case TabDoctors:
		for _, d := range page.Filter.Doctors(snap.Doctors) {
			page.DoctorRows = append(page.DoctorRows, doctorRow{
				Doctor:   d,
				WardName: snap.WardName(d.WardID),
				EditURL:  returnTo(fmt.Sprintf("/doctors/%d/edit", d.PersonID), self),
			})
		}
	case TabTreatments:
		for _, t := range page.Filter.Treatments(snap.Treatments) {
			date := t.Date
			if day, ok := hospital.ParseDay(t.Date); ok {
				date = day.Format("02.01.2006")
			}
			page.TreatmentRows = append(page.TreatmentRows, treatmentRow{
				Treatment:   t,
				Date:        date,
				PatientName: snap.PatientName(t.PatientPersonID),
				DoctorName:  snap.DoctorName(t.DoctorPersonID),
				Color:       palette.Color(t.DoctorPersonID),
				EditURL:     returnTo(fmt.Sprintf("/treatments/%d/edit", t.TreatmentID), self),
			})
		}
	case TabWards:
		if snap.CapacityErr != nil {
			page.CapacityError = "Capacity data unavailable."
		}
		for _, w := range page.Filter.Wards(snap.Wards) {
			row := wardRow{Ward: w, EditURL: returnTo(fmt.Sprintf("/wards/%d/edit", w.WardID), self)}
			if wc, ok := snap.Capacities[w.WardID]; ok {
				row.Capacity = &wc
			}
			page.WardRows = append(page.WardRows, row)
		}
	case TabCalendar:
		view := dashboard.ParseView(q.Get("view"))
		ref := dashboard.ParseMonth(q.Get("ref"))
		page.Calendar = dashboard.Build(view, ref, page.CalendarFilter.Treatments(snap), snap)
		page.PrevRef = hospital.DayKey(dashboard.Shift(page.Calendar.Ref, view, -1))
		page.NextRef = hospital.DayKey(dashboard.Shift(page.Calendar.Ref, view, 1))
	}
	return c.Render(http.StatusOK, "secretary", page)
}

// doctorPage is the model of the doctor template.
type doctorPage struct {
	Doctors  []hospital.Doctor
	Selected int64
	Filter   dashboard.DoctorFilter
	View     *dashboard.DoctorView
	Types    []string
	SnapID   string
	Error    string
}

func (p doctorPage) PageTitle() string { return "Doctor Dashboard" }

// Doctor renders the dashboard of the doctor chosen with ?doctor=.
func (h *Handler) Doctor(c echo.Context) error {
	q := c.QueryParams()
	page := doctorPage{
		Types: h.catalog.TherapyCategories.Names(),
		Filter: dashboard.DoctorFilter{
			StartDate:     q.Get("from"),
			EndDate:       q.Get("to"),
			TreatmentType: q.Get("type"),
			PatientName:   q.Get("patient"),
		},
	}
	if q.Get("clear") != "" {
		page.Filter = dashboard.DoctorFilter{}
	}

	snap, id, _, err := h.snapshot(c)
	if err != nil {
		h.logger.Error().Err(err).Msg("doctor dashboard load failed")
		page.Error = "Failed to load dashboard data: " + apiclient.Message(err)
		return c.Render(statusOf(err), "doctor", page)
	}
	page.SnapID = id
	page.Doctors = append([]hospital.Doctor(nil), snap.Doctors...)
	sort.SliceStable(page.Doctors, func(i, j int) bool {
		return page.Doctors[i].FullName() < page.Doctors[j].FullName()
	})

	raw := q.Get("doctor")
	if raw == "" {
		return c.Render(http.StatusOK, "doctor", page)
	}
	doctorID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		page.Error = "Invalid doctor selection."
		return c.Render(http.StatusBadRequest, "doctor", page)
	}
	page.Selected = doctorID
	if _, ok := snap.Doctor(doctorID); !ok {
		page.Error = "Doctor not found."
		return c.Render(http.StatusNotFound, "doctor", page)
	}

	view, err := dashboard.LoadDoctor(h.ctx(c), h.source, snap, doctorID, page.Filter, h.catalog.TherapyCategories)
	if err != nil {
		h.logger.Error().Err(err).Int64("doctor", doctorID).Msg("doctor treatments load failed")
		page.Error = "Failed to load treatments: " + apiclient.Message(err)
		return c.Render(statusOf(err), "doctor", page)
	}
	page.View = view
	return c.Render(http.StatusOK, "doctor", page)
}
