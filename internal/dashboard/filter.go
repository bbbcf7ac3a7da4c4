package dashboard

import (
	"strconv"
	"strings"

	"github.com/healthsphere/admin/internal/domain/hospital"
)

// Filter narrows the secretary dashboard tables. Every criterion is a
// conjunct and an empty value matches everything.
type Filter struct {
	Search        string
	Department    string
	Ward          string
	TreatmentType string
	DateFrom      string
	DateTo        string
}

// Clear resets every criterion at once.
func (f *Filter) Clear() {
	*f = Filter{}
}

// IsZero reports whether no criterion is set.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}

func (f Filter) search() string {
	return strings.ToLower(strings.TrimSpace(f.Search))
}

func (f Filter) matchesName(firstname, name string) bool {
	q := f.search()
	return q == "" || contains(firstname, q) || contains(name, q)
}

func (f Filter) matchesWard(wardID *int64) bool {
	if f.Ward == "" {
		return true
	}
	return wardID != nil && strconv.FormatInt(*wardID, 10) == f.Ward
}

// matchesDate applies the date bounds. Records without a readable date are
// not constrained by them.
func (f Filter) matchesDate(raw string) bool {
	day, ok := hospital.ParseDay(raw)
	if !ok {
		return true
	}
	if from, ok := hospital.ParseDay(f.DateFrom); ok && day.Before(from) {
		return false
	}
	if to, ok := hospital.ParseDay(f.DateTo); ok && day.After(to) {
		return false
	}
	return true
}

func (f Filter) Patients(in []hospital.Patient) []hospital.Patient {
	out := make([]hospital.Patient, 0, len(in))
	for _, p := range in {
		if f.matchesName(p.Firstname, p.Name) && f.matchesWard(p.WardID) {
			out = append(out, p)
		}
	}
	return out
}

func (f Filter) Doctors(in []hospital.Doctor) []hospital.Doctor {
	out := make([]hospital.Doctor, 0, len(in))
	for _, d := range in {
		if !f.matchesName(d.Firstname, d.Name) || !f.matchesWard(d.WardID) {
			continue
		}
		if f.Department != "" && d.Department != f.Department {
			continue
		}
		out = append(out, d)
	}
	return out
}

func (f Filter) Treatments(in []hospital.Treatment) []hospital.Treatment {
	q := f.search()
	kind := strings.ToLower(strings.TrimSpace(f.TreatmentType))
	out := make([]hospital.Treatment, 0, len(in))
	for _, t := range in {
		if q != "" && !contains(t.Therapy, q) {
			continue
		}
		if kind != "" && !contains(t.Therapy, kind) {
			continue
		}
		if !f.matchesDate(t.Date) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (f Filter) Wards(in []hospital.Ward) []hospital.Ward {
	q := f.search()
	out := make([]hospital.Ward, 0, len(in))
	for _, w := range in {
		if q == "" || contains(w.WardName, q) {
			out = append(out, w)
		}
	}
	return out
}

// Departments lists the distinct departments of doctors in first-seen
// order, for the department filter.
func Departments(doctors []hospital.Doctor) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, d := range doctors {
		if d.Department == "" {
			continue
		}
		if _, ok := seen[d.Department]; ok {
			continue
		}
		seen[d.Department] = struct{}{}
		out = append(out, d.Department)
	}
	return out
}
