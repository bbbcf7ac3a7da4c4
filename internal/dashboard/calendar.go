package dashboard

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/healthsphere/admin/internal/domain/hospital"
)

// View selects the calendar granularity.
type View int

const (
	ViewMonth View = iota
	ViewWeek
)

func (v View) String() string {
	if v == ViewWeek {
		return "week"
	}
	return "month"
}

// ParseView reads a view name; anything but "week" is the month view.
func ParseView(s string) View {
	if s == "week" {
		return ViewWeek
	}
	return ViewMonth
}

// CalendarFilter narrows the calendar by doctor, patient or ward id. The
// ward criterion is satisfied when either the doctor or the patient of a
// treatment belongs to the ward.
type CalendarFilter struct {
	Doctor  string
	Patient string
	Ward    string
}

func (f CalendarFilter) IsZero() bool {
	return f == CalendarFilter{}
}

func inWard(wardID *int64, ward string) bool {
	return wardID != nil && strconv.FormatInt(*wardID, 10) == ward
}

// Treatments returns the treatments passing the calendar filter.
func (f CalendarFilter) Treatments(snap *Snapshot) []hospital.Treatment {
	out := make([]hospital.Treatment, 0, len(snap.Treatments))
	for _, t := range snap.Treatments {
		if f.Doctor != "" && strconv.FormatInt(t.DoctorPersonID, 10) != f.Doctor {
			continue
		}
		if f.Patient != "" && strconv.FormatInt(t.PatientPersonID, 10) != f.Patient {
			continue
		}
		if f.Ward != "" {
			d, dok := snap.Doctor(t.DoctorPersonID)
			p, pok := snap.Patient(t.PatientPersonID)
			if !(dok && inWard(d.WardID, f.Ward)) && !(pok && inWard(p.WardID, f.Ward)) {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// Entry is one treatment chip in a calendar cell.
type Entry struct {
	Treatment   hospital.Treatment
	Color       string
	Label       string
	PatientName string
	DoctorName  string
}

// Cell is one day of the calendar grid.
type Cell struct {
	Date       time.Time
	Day        int
	OtherMonth bool
	Today      bool
	Entries    []Entry
}

// LegendItem maps a doctor with treatments on the calendar to its colour.
type LegendItem struct {
	DoctorID int64
	Name     string
	Color    string
}

// Grid is a rendered calendar page. Cells are ordered Monday first and
// always fill whole weeks.
type Grid struct {
	View   View
	Ref    time.Time
	Title  string
	Cells  []Cell
	Legend []LegendItem
}

// Weeks splits the cells into rows of seven.
func (g Grid) Weeks() [][]Cell {
	var rows [][]Cell
	for i := 0; i+7 <= len(g.Cells); i += 7 {
		rows = append(rows, g.Cells[i:i+7])
	}
	return rows
}

// Weekdays are the column headers of every grid.
var Weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

var now = time.Now

// mondayOffset is the number of days since the Monday starting t's week.
func mondayOffset(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthRange returns the first and last day of the padded month grid.
func MonthRange(ref time.Time) (time.Time, time.Time) {
	first := firstOfMonth(ref)
	last := first.AddDate(0, 1, -1)
	start := first.AddDate(0, 0, -mondayOffset(first))
	end := last.AddDate(0, 0, 6-mondayOffset(last))
	return start, end
}

// WeekRange returns the Monday and Sunday of the week containing ref.
func WeekRange(ref time.Time) (time.Time, time.Time) {
	start := hospital.Day(ref).AddDate(0, 0, -mondayOffset(ref))
	return start, start.AddDate(0, 0, 6)
}

// MonthGrid lays out the month containing ref. Days of the neighbouring
// months pad the grid to whole Monday-start weeks.
func MonthGrid(ref time.Time, treatments []hospital.Treatment, snap *Snapshot) Grid {
	ref = firstOfMonth(ref)
	start, end := MonthRange(ref)
	return Grid{
		View:   ViewMonth,
		Ref:    ref,
		Title:  fmt.Sprintf("%s %d", ref.Month(), ref.Year()),
		Cells:  cells(start, end, ref.Month(), treatments, snap),
		Legend: Legend(treatments, snap),
	}
}

// WeekGrid lays out the seven days of the Monday-start week containing ref.
func WeekGrid(ref time.Time, treatments []hospital.Treatment, snap *Snapshot) Grid {
	ref = hospital.Day(ref)
	start, end := WeekRange(ref)
	return Grid{
		View:   ViewWeek,
		Ref:    ref,
		Title:  fmt.Sprintf("%s - %s", start.Format("02.01."), end.Format("02.01.2006")),
		Cells:  cells(start, end, ref.Month(), treatments, snap),
		Legend: Legend(treatments, snap),
	}
}

// Build dispatches on the view.
func Build(view View, ref time.Time, treatments []hospital.Treatment, snap *Snapshot) Grid {
	if view == ViewWeek {
		return WeekGrid(ref, treatments, snap)
	}
	return MonthGrid(ref, treatments, snap)
}

func cells(start, end time.Time, month time.Month, treatments []hospital.Treatment, snap *Snapshot) []Cell {
	byDay := bucket(treatments, snap)
	today := hospital.Day(now())
	var out []Cell
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, Cell{
			Date:       d,
			Day:        d.Day(),
			OtherMonth: d.Month() != month,
			Today:      d.Equal(today),
			Entries:    byDay[hospital.DayKey(d)],
		})
	}
	return out
}

// bucket groups treatments by calendar day. Treatments without a readable
// date appear on no day.
func bucket(treatments []hospital.Treatment, snap *Snapshot) map[string][]Entry {
	sorted := append([]hospital.Treatment(nil), treatments...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TreatmentID < sorted[j].TreatmentID
	})
	palette := snap.Palette()
	byDay := map[string][]Entry{}
	for _, t := range sorted {
		day, ok := hospital.ParseDay(t.Date)
		if !ok {
			continue
		}
		key := hospital.DayKey(day)
		byDay[key] = append(byDay[key], Entry{
			Treatment:   t,
			Color:       palette.Color(t.DoctorPersonID),
			Label:       chipLabel(snap, t.PatientPersonID),
			PatientName: snap.PatientName(t.PatientPersonID),
			DoctorName:  snap.DoctorName(t.DoctorPersonID),
		})
	}
	return byDay
}

// chipLabel abbreviates the patient as "Firstname N.".
func chipLabel(snap *Snapshot, patientID int64) string {
	p, ok := snap.Patient(patientID)
	if !ok {
		return "N/A"
	}
	if p.Name == "" {
		return p.Firstname
	}
	return p.Firstname + " " + string([]rune(p.Name)[:1]) + "."
}

// Legend lists the known doctors of the given treatments in first-seen
// order with their palette colours.
func Legend(treatments []hospital.Treatment, snap *Snapshot) []LegendItem {
	var out []LegendItem
	seen := map[int64]struct{}{}
	palette := snap.Palette()
	for _, t := range treatments {
		if _, ok := seen[t.DoctorPersonID]; ok {
			continue
		}
		seen[t.DoctorPersonID] = struct{}{}
		d, ok := snap.Doctor(t.DoctorPersonID)
		if !ok {
			continue
		}
		out = append(out, LegendItem{DoctorID: d.PersonID, Name: d.FullName(), Color: palette.Color(d.PersonID)})
	}
	return out
}

// Shift moves the reference date by n months or weeks. Month shifts land
// on the first of the target month so short months never overflow.
func Shift(ref time.Time, view View, n int) time.Time {
	if view == ViewWeek {
		return hospital.Day(ref).AddDate(0, 0, 7*n)
	}
	return firstOfMonth(ref).AddDate(0, n, 0)
}

// ParseMonth reads "2006-01" or a full day; an empty or invalid value
// yields the current month.
func ParseMonth(s string) time.Time {
	if t, err := time.Parse("2006-01", s); err == nil {
		return t
	}
	if t, ok := hospital.ParseDay(s); ok {
		return t
	}
	return hospital.Day(now())
}
