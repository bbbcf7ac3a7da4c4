package sandbox

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/healthsphere/admin/internal/domain/hospital"
)

// StatusError carries the status code and plain-text body the sandbox
// answers with, mirroring how the hospital backend reports failures.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string { return e.Message }

func badRequest(format string, args ...any) error {
	return &StatusError{Code: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...any) error {
	return &StatusError{Code: http.StatusConflict, Message: fmt.Sprintf(format, args...)}
}

func notFound(what string, id int64) error {
	return &StatusError{Code: http.StatusNotFound, Message: fmt.Sprintf("%s %d not found", what, id)}
}

// Store is the in-memory state of the sandbox backend. Ids are assigned as
// the highest existing id plus one.
type Store struct {
	mu         sync.RWMutex
	patients   map[int64]hospital.Patient
	doctors    map[int64]hospital.Doctor
	treatments map[int64]hospital.Treatment
	wards      map[int64]hospital.Ward
}

func NewStore() *Store {
	s := &Store{}
	s.Reset()
	return s
}

// Reset drops every record.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients = map[int64]hospital.Patient{}
	s.doctors = map[int64]hospital.Doctor{}
	s.treatments = map[int64]hospital.Treatment{}
	s.wards = map[int64]hospital.Ward{}
}

func nextID[T any](m map[int64]T) int64 {
	var max int64
	for id := range m {
		if id > max {
			max = id
		}
	}
	return max + 1
}

func sorted[T any](m map[int64]T) []T {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}

// ---------------------------------------------------------------------------
// Patients
// ---------------------------------------------------------------------------

func (s *Store) Patients() []hospital.Patient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sorted(s.patients)
}

func (s *Store) Patient(id int64) (hospital.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[id]
	if !ok {
		return p, notFound("patient", id)
	}
	return p, nil
}

func (s *Store) checkPerson(firstname, name string) error {
	if strings.TrimSpace(firstname) == "" || strings.TrimSpace(name) == "" {
		return badRequest("first name and last name are required")
	}
	return nil
}

// checkBed verifies that a patient may be placed on the ward. self is the
// patient already holding a bed there, if any.
func (s *Store) checkBed(wardID *int64, self int64) error {
	if wardID == nil {
		return nil
	}
	w, ok := s.wards[*wardID]
	if !ok {
		return badRequest("ward %d does not exist", *wardID)
	}
	occupied := 0
	for _, p := range s.patients {
		if p.PersonID != self && p.WardID != nil && *p.WardID == w.WardID {
			occupied++
		}
	}
	if occupied >= w.Capacity {
		return conflict("ward %s is full", w.WardName)
	}
	return nil
}

func (s *Store) CreatePatient(p hospital.Patient) (hospital.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkPerson(p.Firstname, p.Name); err != nil {
		return p, err
	}
	if err := s.checkBed(p.WardID, 0); err != nil {
		return p, err
	}
	p.PersonID = nextID(s.patients)
	s.patients[p.PersonID] = p
	return p, nil
}

func (s *Store) UpdatePatient(id int64, p hospital.Patient) (hospital.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.patients[id]
	if !ok {
		return p, notFound("patient", id)
	}
	if err := s.checkPerson(p.Firstname, p.Name); err != nil {
		return p, err
	}
	if err := s.checkBed(p.WardID, id); err != nil {
		return p, err
	}
	p.PersonID = id
	if p.Birthdate == "" {
		p.Birthdate = prev.Birthdate
	}
	s.patients[id] = p
	return p, nil
}

// DeletePatient removes the patient. Treatments of the patient go with it.
func (s *Store) DeletePatient(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[id]; !ok {
		return notFound("patient", id)
	}
	delete(s.patients, id)
	for tid, t := range s.treatments {
		if t.PatientPersonID == id {
			delete(s.treatments, tid)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Doctors
// ---------------------------------------------------------------------------

func (s *Store) Doctors() []hospital.Doctor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sorted(s.doctors)
}

func (s *Store) Doctor(id int64) (hospital.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.doctors[id]
	if !ok {
		return d, notFound("employee", id)
	}
	return d, nil
}

func (s *Store) checkDoctor(d hospital.Doctor) error {
	if err := s.checkPerson(d.Firstname, d.Name); err != nil {
		return err
	}
	if d.Salary != nil && *d.Salary < 0 {
		return badRequest("salary must not be negative")
	}
	if d.WardID != nil {
		if _, ok := s.wards[*d.WardID]; !ok {
			return badRequest("ward %d does not exist", *d.WardID)
		}
	}
	return nil
}

func (s *Store) CreateDoctor(d hospital.Doctor) (hospital.Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkDoctor(d); err != nil {
		return d, err
	}
	d.PersonID = nextID(s.doctors)
	s.doctors[d.PersonID] = d
	return d, nil
}

func (s *Store) UpdateDoctor(id int64, d hospital.Doctor) (hospital.Doctor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.doctors[id]; !ok {
		return d, notFound("employee", id)
	}
	if err := s.checkDoctor(d); err != nil {
		return d, err
	}
	d.PersonID = id
	s.doctors[id] = d
	return d, nil
}

// DeleteDoctor refuses while treatments still reference the doctor.
func (s *Store) DeleteDoctor(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.doctors[id]; !ok {
		return notFound("employee", id)
	}
	for _, t := range s.treatments {
		if t.DoctorPersonID == id {
			return conflict("employee %d still has treatments", id)
		}
	}
	delete(s.doctors, id)
	return nil
}

// ---------------------------------------------------------------------------
// Treatments
// ---------------------------------------------------------------------------

func (s *Store) Treatments() []hospital.Treatment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sorted(s.treatments)
}

func (s *Store) Treatment(id int64) (hospital.Treatment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.treatments[id]
	if !ok {
		return t, notFound("treatment", id)
	}
	return t, nil
}

// TreatmentsWhere returns the treatments matching keep in id order.
func (s *Store) TreatmentsWhere(keep func(hospital.Treatment) bool) []hospital.Treatment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []hospital.Treatment{}
	for _, t := range sorted(s.treatments) {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func (s *Store) checkTreatment(t hospital.Treatment) error {
	if _, ok := hospital.ParseDay(t.Date); !ok {
		return badRequest("invalid treatment date %q", t.Date)
	}
	if strings.TrimSpace(t.Therapy) == "" {
		return badRequest("therapy is required")
	}
	if _, ok := s.patients[t.PatientPersonID]; !ok {
		return badRequest("patient %d does not exist", t.PatientPersonID)
	}
	if _, ok := s.doctors[t.DoctorPersonID]; !ok {
		return badRequest("employee %d does not exist", t.DoctorPersonID)
	}
	return nil
}

func (s *Store) CreateTreatment(t hospital.Treatment) (hospital.Treatment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkTreatment(t); err != nil {
		return t, err
	}
	if t.TreatmentID != 0 {
		if _, taken := s.treatments[t.TreatmentID]; taken {
			return t, conflict("treatment %d already exists", t.TreatmentID)
		}
	} else {
		t.TreatmentID = nextID(s.treatments)
	}
	s.treatments[t.TreatmentID] = t
	return t, nil
}

func (s *Store) UpdateTreatment(id int64, t hospital.Treatment) (hospital.Treatment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.treatments[id]; !ok {
		return t, notFound("treatment", id)
	}
	if err := s.checkTreatment(t); err != nil {
		return t, err
	}
	t.TreatmentID = id
	s.treatments[id] = t
	return t, nil
}

func (s *Store) DeleteTreatment(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.treatments[id]; !ok {
		return notFound("treatment", id)
	}
	delete(s.treatments, id)
	return nil
}

// ---------------------------------------------------------------------------
// Wards
// ---------------------------------------------------------------------------

func (s *Store) Wards() []hospital.Ward {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sorted(s.wards)
}

func (s *Store) Ward(id int64) (hospital.Ward, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wards[id]
	if !ok {
		return w, notFound("ward", id)
	}
	return w, nil
}

func (s *Store) checkWard(w hospital.Ward) error {
	if strings.TrimSpace(w.WardName) == "" {
		return badRequest("ward name is required")
	}
	if w.Capacity <= 0 {
		return badRequest("capacity must be greater than 0")
	}
	return nil
}

// CreateWard keeps a caller-chosen id when it is free.
func (s *Store) CreateWard(w hospital.Ward) (hospital.Ward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkWard(w); err != nil {
		return w, err
	}
	if w.WardID != 0 {
		if _, taken := s.wards[w.WardID]; taken {
			return w, conflict("ward %d already exists", w.WardID)
		}
	} else {
		w.WardID = nextID(s.wards)
	}
	s.wards[w.WardID] = w
	return w, nil
}

func (s *Store) UpdateWard(id int64, w hospital.Ward) (hospital.Ward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wards[id]; !ok {
		return w, notFound("ward", id)
	}
	if err := s.checkWard(w); err != nil {
		return w, err
	}
	if occupied := s.occupancy(id); w.Capacity < occupied {
		return w, conflict("capacity %d is below the current occupancy of %d", w.Capacity, occupied)
	}
	w.WardID = id
	s.wards[id] = w
	return w, nil
}

// DeleteWard refuses while patients are assigned to the ward.
func (s *Store) DeleteWard(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wards[id]; !ok {
		return notFound("ward", id)
	}
	if s.occupancy(id) > 0 {
		return conflict("ward %d still has patients", id)
	}
	delete(s.wards, id)
	for pid, d := range s.doctors {
		if d.WardID != nil && *d.WardID == id {
			d.WardID = nil
			s.doctors[pid] = d
		}
	}
	return nil
}

func (s *Store) occupancy(wardID int64) int {
	n := 0
	for _, p := range s.patients {
		if p.WardID != nil && *p.WardID == wardID {
			n++
		}
	}
	return n
}

// Capacities reports the occupancy of every ward.
func (s *Store) Capacities() []hospital.WardCapacity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]hospital.WardCapacity, 0, len(s.wards))
	for _, w := range sorted(s.wards) {
		assigned := []hospital.AssignedPatient{}
		for _, p := range sorted(s.patients) {
			if p.WardID != nil && *p.WardID == w.WardID {
				assigned = append(assigned, hospital.AssignedPatient{
					PersonID:  p.PersonID,
					Name:      p.Name,
					Firstname: p.Firstname,
					Email:     p.Email,
				})
			}
		}
		available := w.Capacity - len(assigned)
		if available < 0 {
			available = 0
		}
		out = append(out, hospital.WardCapacity{
			WardID:            w.WardID,
			WardName:          w.WardName,
			Description:       w.Description,
			TotalCapacity:     w.Capacity,
			CurrentOccupancy:  len(assigned),
			AvailableCapacity: available,
			HasCapacity:       available > 0,
			AssignedPatients:  assigned,
		})
	}
	return out
}

// Counts summarises the store for health and seed reports.
type Counts struct {
	Patients   int `json:"patients"`
	Doctors    int `json:"employees"`
	Treatments int `json:"treatments"`
	Wards      int `json:"wards"`
}

func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{
		Patients:   len(s.patients),
		Doctors:    len(s.doctors),
		Treatments: len(s.treatments),
		Wards:      len(s.wards),
	}
}
