// Package dashboard projects the hospital collections into the secretary and
// doctor dashboards: filtered tables, the treatment calendar and the doctor
// colour palette.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/healthsphere/admin/internal/domain/hospital"
	"github.com/healthsphere/admin/internal/platform/apiclient"
)

// Source is the read side of the backend the dashboards need.
type Source interface {
	Patients(ctx context.Context) ([]hospital.Patient, error)
	Doctors(ctx context.Context) ([]hospital.Doctor, error)
	Treatments(ctx context.Context) ([]hospital.Treatment, error)
	Wards(ctx context.Context) ([]hospital.Ward, error)
	WardCapacities(ctx context.Context) ([]hospital.WardCapacity, error)
	TreatmentsByDoctor(ctx context.Context, doctorID int64) ([]hospital.Treatment, error)
}

// ClientSource reads dashboards through the API client.
type ClientSource struct {
	Client *apiclient.Client
}

func (s ClientSource) Patients(ctx context.Context) ([]hospital.Patient, error) {
	return s.Client.Patients().List(ctx)
}

func (s ClientSource) Doctors(ctx context.Context) ([]hospital.Doctor, error) {
	return s.Client.Doctors().List(ctx)
}

func (s ClientSource) Treatments(ctx context.Context) ([]hospital.Treatment, error) {
	return s.Client.Treatments().List(ctx)
}

func (s ClientSource) Wards(ctx context.Context) ([]hospital.Ward, error) {
	return s.Client.Wards().List(ctx)
}

func (s ClientSource) WardCapacities(ctx context.Context) ([]hospital.WardCapacity, error) {
	return s.Client.WardCapacities(ctx)
}

func (s ClientSource) TreatmentsByDoctor(ctx context.Context, doctorID int64) ([]hospital.Treatment, error) {
	return s.Client.TreatmentsByDoctor(ctx, doctorID)
}

// Snapshot is one consistent load of the four collections. Snapshots are
// never modified; Refresh returns a new one.
type Snapshot struct {
	Patients   []hospital.Patient
	Doctors    []hospital.Doctor
	Treatments []hospital.Treatment
	Wards      []hospital.Ward
	// Capacities is keyed by ward id. It is empty when CapacityErr is set.
	Capacities  map[int64]hospital.WardCapacity
	CapacityErr error
	LoadedAt    time.Time

	patientByID map[int64]hospital.Patient
	doctorByID  map[int64]hospital.Doctor
	wardByID    map[int64]hospital.Ward
	palette     Palette
}

// Load fetches the four collections concurrently and fails fast: the first
// error cancels the remaining loads and no partial snapshot is returned.
// Ward capacities are loaded afterwards; their failure only leaves the
// capacity panel empty.
func Load(ctx context.Context, src Source, logger zerolog.Logger) (*Snapshot, error) {
	var (
		patients   []hospital.Patient
		doctors    []hospital.Doctor
		treatments []hospital.Treatment
		wards      []hospital.Ward
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		patients, err = src.Patients(gctx)
		return wrap("patients", err)
	})
	g.Go(func() (err error) {
		doctors, err = src.Doctors(gctx)
		return wrap("doctors", err)
	})
	g.Go(func() (err error) {
		treatments, err = src.Treatments(gctx)
		return wrap("treatments", err)
	})
	g.Go(func() (err error) {
		wards, err = src.Wards(gctx)
		return wrap("wards", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Patients:   patients,
		Doctors:    doctors,
		Treatments: treatments,
		Wards:      wards,
		LoadedAt:   time.Now(),
	}
	snap.loadCapacities(ctx, src, logger)
	snap.index()
	return snap, nil
}

func wrap(what string, err error) error {
	if err != nil {
		return fmt.Errorf("load %s: %w", what, err)
	}
	return nil
}

func (s *Snapshot) loadCapacities(ctx context.Context, src Source, logger zerolog.Logger) {
	s.Capacities = map[int64]hospital.WardCapacity{}
	s.CapacityErr = nil
	caps, err := src.WardCapacities(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("ward capacities unavailable")
		s.CapacityErr = err
		return
	}
	for _, c := range caps {
		s.Capacities[c.WardID] = c
	}
}

func (s *Snapshot) index() {
	s.patientByID = make(map[int64]hospital.Patient, len(s.Patients))
	for _, p := range s.Patients {
		s.patientByID[p.PersonID] = p
	}
	s.doctorByID = make(map[int64]hospital.Doctor, len(s.Doctors))
	for _, d := range s.Doctors {
		s.doctorByID[d.PersonID] = d
	}
	s.wardByID = make(map[int64]hospital.Ward, len(s.Wards))
	for _, w := range s.Wards {
		s.wardByID[w.WardID] = w
	}
	s.palette = NewPalette(s.Doctors)
}

// Refresh re-fetches only the named backend collection and returns a new
// snapshot sharing the untouched collections. Capacities follow patient,
// doctor and ward changes.
func Refresh(ctx context.Context, src Source, prev *Snapshot, resource string, logger zerolog.Logger) (*Snapshot, error) {
	next := *prev
	var err error
	switch resource {
	case apiclient.Patients:
		next.Patients, err = src.Patients(ctx)
	case apiclient.Doctors:
		next.Doctors, err = src.Doctors(ctx)
	case apiclient.Treatments:
		next.Treatments, err = src.Treatments(ctx)
	case apiclient.Wards:
		next.Wards, err = src.Wards(ctx)
	default:
		return nil, fmt.Errorf("refresh: unknown collection %q", resource)
	}
	if err != nil {
		return nil, wrap(resource, err)
	}
	if resource != apiclient.Treatments {
		next.loadCapacities(ctx, src, logger)
	}
	next.LoadedAt = time.Now()
	next.index()
	return &next, nil
}

func (s *Snapshot) Patient(id int64) (hospital.Patient, bool) {
	p, ok := s.patientByID[id]
	return p, ok
}

func (s *Snapshot) Doctor(id int64) (hospital.Doctor, bool) {
	d, ok := s.doctorByID[id]
	return d, ok
}

func (s *Snapshot) Ward(id int64) (hospital.Ward, bool) {
	w, ok := s.wardByID[id]
	return w, ok
}

func (s *Snapshot) Palette() Palette { return s.palette }

// PatientName resolves a treatment's patient for display.
func (s *Snapshot) PatientName(id int64) string {
	if p, ok := s.Patient(id); ok {
		return p.FullName()
	}
	return "Unknown"
}

func (s *Snapshot) DoctorName(id int64) string {
	if d, ok := s.Doctor(id); ok {
		return d.FullName()
	}
	return "Unknown"
}

// WardName resolves an optional ward reference.
func (s *Snapshot) WardName(id *int64) string {
	if id == nil {
		return "No ward"
	}
	if w, ok := s.Ward(*id); ok {
		return w.WardName
	}
	return "No ward"
}

// Stats are the headline counts of the secretary dashboard.
type Stats struct {
	Patients   int
	Doctors    int
	Treatments int
	Wards      int
}

func (s *Snapshot) Stats() Stats {
	return Stats{
		Patients:   len(s.Patients),
		Doctors:    len(s.Doctors),
		Treatments: len(s.Treatments),
		Wards:      len(s.Wards),
	}
}
