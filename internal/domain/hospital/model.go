// Package hospital holds the typed records served by the hospital backend.
package hospital

import "strings"

// Patient is a person admitted to the hospital, optionally assigned to a ward.
type Patient struct {
	PersonID    int64  `json:"personId"`
	Firstname   string `json:"firstname"`
	Name        string `json:"name"`
	Phonenumber string `json:"phonenumber,omitempty"`
	Email       string `json:"email,omitempty"`
	Birthdate   string `json:"birthdate,omitempty"`
	Adress      string `json:"adress,omitempty"`
	WardID      *int64 `json:"wardId"`
}

// FullName returns "Firstname Name" with surrounding blanks removed.
func (p Patient) FullName() string {
	return strings.TrimSpace(p.Firstname + " " + p.Name)
}

// Doctor is an employee that can treat patients. The backend serves doctors
// under the employees collection.
type Doctor struct {
	PersonID    int64    `json:"personId"`
	Firstname   string   `json:"firstname"`
	Name        string   `json:"name"`
	Phonenumber string   `json:"phonenumber,omitempty"`
	Email       string   `json:"email,omitempty"`
	Birthdate   string   `json:"birthdate,omitempty"`
	Adress      string   `json:"adress,omitempty"`
	Department  string   `json:"department"`
	Salary      *float64 `json:"salary,omitempty"`
	WardID      *int64   `json:"wardId"`
}

func (d Doctor) FullName() string {
	return strings.TrimSpace(d.Firstname + " " + d.Name)
}

// Treatment links one patient and one doctor on a calendar day.
type Treatment struct {
	TreatmentID     int64  `json:"treatmentId"`
	Date            string `json:"date"`
	Therapy         string `json:"therapy"`
	PatientPersonID int64  `json:"patientPersonId"`
	DoctorPersonID  int64  `json:"doctorPersonId"`
}

// Ward is a hospital unit with a bed capacity.
type Ward struct {
	WardID      int64  `json:"wardId"`
	WardName    string `json:"wardName"`
	Capacity    int    `json:"capacity"`
	Description string `json:"description,omitempty"`
}

// AssignedPatient is the short patient form embedded in capacity reports.
type AssignedPatient struct {
	PersonID  int64  `json:"personId"`
	Name      string `json:"name"`
	Firstname string `json:"firstname"`
	Email     string `json:"email,omitempty"`
}

// WardCapacity is the backend's occupancy report for one ward. It is the
// source of truth for occupancy; the console never recomputes it.
type WardCapacity struct {
	WardID            int64             `json:"wardId"`
	WardName          string            `json:"wardName"`
	Description       string            `json:"description,omitempty"`
	TotalCapacity     int               `json:"totalCapacity"`
	CurrentOccupancy  int               `json:"currentOccupancy"`
	AvailableCapacity int               `json:"availableCapacity"`
	HasCapacity       bool              `json:"hasCapacity"`
	AssignedPatients  []AssignedPatient `json:"assignedPatients"`
}

// OccupancyPercent returns the occupied share of the ward in whole percent.
func (w WardCapacity) OccupancyPercent() int {
	if w.TotalCapacity <= 0 {
		return 0
	}
	return w.CurrentOccupancy * 100 / w.TotalCapacity
}
