package registry

import (
	"github.com/healthsphere/admin/internal/domain/hospital"
	"github.com/healthsphere/admin/internal/form"
	"github.com/healthsphere/admin/internal/reference"
)

// Dependent data source names.
const (
	SourceWards    = "wards"
	SourcePatients = "patients"
	SourceDoctors  = "doctors"
)

var wardOptions = &form.DataSource{
	Name:         SourceWards,
	ValueField:   "wardId",
	DisplayField: "wardName",
	Format: func(r form.Record) string {
		return r.String("wardName") + " (Capacity: " + r.String("capacity") + ")"
	},
}

var patientOptions = &form.DataSource{
	Name:         SourcePatients,
	ValueField:   "personId",
	DisplayField: "firstname",
	Format: func(r form.Record) string {
		return r.String("firstname") + " " + r.String("name")
	},
}

var doctorOptions = &form.DataSource{
	Name:         SourceDoctors,
	ValueField:   "personId",
	DisplayField: "firstname",
	Format: func(r form.Record) string {
		return r.String("firstname") + " " + r.String("name") + " - " + r.String("department")
	},
}

// PatientConfig declares the patient form.
func PatientConfig() *form.Configuration {
	return (&form.Configuration{
		Entity:               "patient",
		Title:                "Add New Patient",
		EditTitle:            "Edit Patient",
		ListTitle:            "Patient List",
		SaveButtonText:       "Create Patient",
		SuccessMessage:       "Patient created successfully!",
		UpdateSuccessMessage: "Patient updated successfully!",
		RelatedDataTitle:     "Patient Treatments",
		Fields: []form.FieldSpec{
			{Name: "firstname", Label: "First Name", Kind: form.Text{}, Required: true, Placeholder: "Enter first name"},
			{Name: "name", Label: "Last Name", Kind: form.Text{}, Required: true, Placeholder: "Enter last name"},
			{Name: "phonenumber", Label: "Phone Number", Kind: form.Tel{}, Placeholder: "Enter phone number"},
			{Name: "email", Label: "Email", Kind: form.Email{}, Placeholder: "Enter email address"},
			{Name: "birthdate", Label: "Date of Birth", Kind: form.Date{}},
			{Name: "adress", Label: "Address", Kind: form.Text{}, Placeholder: "Enter address"},
			{Name: "wardId", Label: "Ward", Kind: form.Select{Source: wardOptions}, Placeholder: "Select Ward"},
		},
		Transform: func(r form.Record) form.Record {
			return r.With("wardId", form.IntOrNil(r["wardId"]))
		},
	}).MustCheck()
}

// DoctorConfig declares the doctor form. Departments come from the
// reference catalog.
func DoctorConfig(catalog *reference.Catalog) *form.Configuration {
	return (&form.Configuration{
		Entity:               "doctor",
		Title:                "Add New Doctor",
		EditTitle:            "Edit Doctor",
		ListTitle:            "Doctor List",
		SaveButtonText:       "Create Doctor",
		SuccessMessage:       "Doctor created successfully!",
		UpdateSuccessMessage: "Doctor updated successfully!",
		RelatedDataTitle:     "Doctor Information",
		Fields: []form.FieldSpec{
			{Name: "firstname", Label: "First Name", Kind: form.Text{}, Required: true, Placeholder: "Enter first name"},
			{Name: "name", Label: "Last Name", Kind: form.Text{}, Required: true, Placeholder: "Enter last name"},
			{Name: "email", Label: "Email", Kind: form.Email{}, Placeholder: "Enter email address"},
			{Name: "phonenumber", Label: "Phone Number", Kind: form.Tel{}, Placeholder: "Enter phone number"},
			{Name: "birthdate", Label: "Date of Birth", Kind: form.Date{}},
			{Name: "department", Label: "Department", Kind: form.Select{Options: form.StaticOptions(catalog.Departments...)}, Required: true, Placeholder: "Select Department"},
			{Name: "salary", Label: "Salary", Kind: form.Number{}, Placeholder: "Enter salary", Attrs: map[string]string{"min": "0", "step": "0.01"}},
			{Name: "adress", Label: "Address", Kind: form.Text{}, Placeholder: "Enter address"},
			{Name: "wardId", Label: "Ward", Kind: form.Select{Source: wardOptions}, Placeholder: "Select Ward"},
		},
		Transform: func(r form.Record) form.Record {
			return r.
				With("salary", form.FloatOrNil(r["salary"])).
				With("wardId", form.IntOrNil(r["wardId"]))
		},
	}).MustCheck()
}

// TreatmentConfig declares the treatment form. The date defaults to today.
func TreatmentConfig() *form.Configuration {
	return (&form.Configuration{
		Entity:               "treatment",
		Title:                "Add New Treatment",
		EditTitle:            "Edit Treatment",
		ListTitle:            "Treatment List",
		SaveButtonText:       "Save Treatment",
		SuccessMessage:       "Treatment created successfully!",
		UpdateSuccessMessage: "Treatment updated successfully!",
		Fields: []form.FieldSpec{
			{Name: "treatmentId", Label: "Treatment ID", Kind: form.Number{}, Required: true, Placeholder: "Enter Treatment ID", Disabled: true},
			{Name: "date", Label: "Date", Kind: form.Date{}, Required: true, Default: form.Today},
			{Name: "patientPersonId", Label: "Patient", Kind: form.Select{Source: patientOptions}, Required: true, Placeholder: "Select Patient"},
			{Name: "doctorPersonId", Label: "Doctor", Kind: form.Select{Source: doctorOptions}, Required: true, Placeholder: "Select Doctor"},
			{Name: "therapy", Label: "Therapy Description", Kind: form.TextArea{}, FullWidth: true, Placeholder: "Enter therapy details..."},
		},
		Transform: func(r form.Record) form.Record {
			out := optionalInt(r, "treatmentId")
			return out.
				With("patientPersonId", form.IntOrNil(r["patientPersonId"])).
				With("doctorPersonId", form.IntOrNil(r["doctorPersonId"]))
		},
	}).MustCheck()
}

// WardConfig declares the ward form.
func WardConfig() *form.Configuration {
	return (&form.Configuration{
		Entity:               "ward",
		Title:                "Add New Ward",
		EditTitle:            "Edit Ward",
		ListTitle:            "Ward List",
		SaveButtonText:       "Save Ward",
		SuccessMessage:       "Ward created successfully!",
		UpdateSuccessMessage: "Ward updated successfully!",
		Fields: []form.FieldSpec{
			{Name: "wardId", Label: "Ward ID", Kind: form.Number{}, Required: true, Placeholder: "Enter Ward ID"},
			{Name: "wardName", Label: "Ward Name", Kind: form.Text{}, Required: true, Placeholder: "Enter ward name"},
			{Name: "capacity", Label: "Capacity", Kind: form.Number{}, Required: true, Placeholder: "Enter capacity", Attrs: map[string]string{"min": "1"}},
			{Name: "description", Label: "Description", Kind: form.TextArea{}, FullWidth: true, Placeholder: "Enter ward description..."},
		},
		Transform: func(r form.Record) form.Record {
			return optionalInt(r, "wardId").With("capacity", form.IntOrNil(r["capacity"]))
		},
		Validate: func(r form.Record) string {
			n, ok := form.ParseInt(r["capacity"])
			if !ok {
				return "Capacity must be a whole number"
			}
			if n <= 0 {
				return "Capacity must be greater than 0"
			}
			return ""
		},
	}).MustCheck()
}

// optionalInt converts name to an integer and drops it when empty, letting
// the backend assign the value.
func optionalInt(r form.Record, name string) form.Record {
	v := form.IntOrNil(r[name])
	out := r.Clone()
	if v == nil {
		delete(out, name)
		return out
	}
	out[name] = v
	return out
}

func treatmentColumns() []form.Column {
	return []form.Column{
		{Key: "treatmentId", Title: "Treatment ID"},
		{Key: "date", Title: "Date", Render: dateCell("date")},
		{Key: "therapy", Title: "Therapy"},
	}
}

// dateCell renders a date column; unparseable values are shown as-is.
func dateCell(name string) func(form.Record) string {
	return func(r form.Record) string {
		raw := r.String(name)
		if raw == "" {
			return "-"
		}
		d, ok := hospital.ParseDay(raw)
		if !ok {
			return raw
		}
		return d.Format("02.01.2006")
	}
}

func orDash(name string) func(form.Record) string {
	return func(r form.Record) string {
		if s := r.String(name); s != "" {
			return s
		}
		return "-"
	}
}

func fullName(r form.Record) string {
	return r.String("firstname") + " " + r.String("name")
}
