package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/healthsphere/admin/internal/domain/hospital"
	"github.com/healthsphere/admin/internal/reference"
)

// DoctorFilter narrows the treatments shown on a doctor's dashboard.
type DoctorFilter struct {
	StartDate     string
	EndDate       string
	TreatmentType string
	PatientName   string
}

func (f DoctorFilter) IsZero() bool {
	return f == DoctorFilter{}
}

// Apply keeps the treatments matching every set criterion. Date bounds
// exclude treatments without a readable date, and the patient criterion
// excludes treatments whose patient is unknown.
func (f DoctorFilter) Apply(treatments []hospital.Treatment, snap *Snapshot) []hospital.Treatment {
	from, hasFrom := hospital.ParseDay(f.StartDate)
	to, hasTo := hospital.ParseDay(f.EndDate)
	kind := strings.ToLower(strings.TrimSpace(f.TreatmentType))
	name := strings.ToLower(strings.TrimSpace(f.PatientName))

	out := make([]hospital.Treatment, 0, len(treatments))
	for _, t := range treatments {
		if hasFrom || hasTo {
			day, ok := hospital.ParseDay(t.Date)
			if !ok || (hasFrom && day.Before(from)) || (hasTo && day.After(to)) {
				continue
			}
		}
		if kind != "" && !contains(t.Therapy, kind) {
			continue
		}
		if name != "" {
			p, ok := snap.Patient(t.PatientPersonID)
			if !ok || !contains(p.FullName(), name) {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// DoctorStats are the counters above a doctor's treatment list.
type DoctorStats struct {
	Total    int
	Today    int
	Upcoming int
}

// ComputeStats counts treatments at day granularity relative to today.
func ComputeStats(treatments []hospital.Treatment, today time.Time) DoctorStats {
	today = hospital.Day(today)
	stats := DoctorStats{Total: len(treatments)}
	for _, t := range treatments {
		day, ok := hospital.ParseDay(t.Date)
		if !ok {
			continue
		}
		switch {
		case day.Equal(today):
			stats.Today++
		case day.After(today):
			stats.Upcoming++
		}
	}
	return stats
}

// Card is one treatment on the doctor dashboard.
type Card struct {
	Treatment   hospital.Treatment
	PatientName string
	Date        string
	Category    string
}

// DoctorView is the rendered doctor dashboard.
type DoctorView struct {
	Doctor hospital.Doctor
	Cards  []Card
	Stats  DoctorStats
}

// LoadDoctor fetches the doctor's treatments and projects them through the
// filter. Names resolve against snap, which must be loaded already.
func LoadDoctor(ctx context.Context, src Source, snap *Snapshot, doctorID int64, f DoctorFilter, categories reference.TherapyCategories) (*DoctorView, error) {
	doctor, ok := snap.Doctor(doctorID)
	if !ok {
		return nil, fmt.Errorf("doctor %d not found", doctorID)
	}
	treatments, err := src.TreatmentsByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("load treatments of doctor %d: %w", doctorID, err)
	}
	filtered := f.Apply(treatments, snap)
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Date < filtered[j].Date
	})

	view := &DoctorView{
		Doctor: doctor,
		Stats:  ComputeStats(filtered, now()),
		Cards:  make([]Card, 0, len(filtered)),
	}
	for _, t := range filtered {
		date := "-"
		if day, ok := hospital.ParseDay(t.Date); ok {
			date = day.Format("02.01.2006")
		}
		view.Cards = append(view.Cards, Card{
			Treatment:   t,
			PatientName: snap.PatientName(t.PatientPersonID),
			Date:        date,
			Category:    categories.Classify(t.Therapy),
		})
	}
	return view, nil
}
