// Package registry binds the entity form configurations to the backend:
// which collection each entity is stored in, where dependent choices come
// from, and which related tables an edit form shows.
package registry

import (
	"context"
	"fmt"

	"github.com/healthsphere/admin/internal/form"
	"github.com/healthsphere/admin/internal/platform/apiclient"
	"github.com/healthsphere/admin/internal/reference"
)

// Entity describes one managed entity.
type Entity struct {
	// Name is the URL segment of the entity ("patients").
	Name string
	// Singular is used in messages ("patient").
	Singular string
	// Resource is the backend collection path.
	Resource string
	IDField  string
	Config   *form.Configuration
	// Columns are the list view columns.
	Columns []form.Column
	related []form.RelatedConfig
}

// Related returns the related tables shown when editing the entity.
func (e *Entity) Related() []form.RelatedConfig { return e.related }

// Registry holds every managed entity in navigation order.
type Registry struct {
	client   *apiclient.Client
	catalog  *reference.Catalog
	entities []*Entity
	byName   map[string]*Entity
}

func New(client *apiclient.Client, catalog *reference.Catalog) *Registry {
	r := &Registry{client: client, catalog: catalog, byName: map[string]*Entity{}}

	r.add(&Entity{
		Name:     "patients",
		Singular: "patient",
		Resource: apiclient.Patients,
		IDField:  "personId",
		Config:   PatientConfig(),
		Columns: []form.Column{
			{Key: "name", Title: "Name", Render: fullName},
			{Key: "phonenumber", Title: "Phone", Render: orDash("phonenumber")},
			{Key: "email", Title: "Email", Render: orDash("email")},
			{Key: "birthdate", Title: "Date of Birth", Render: dateCell("birthdate")},
			{Key: "wardId", Title: "Ward", Render: orDash("wardId")},
		},
		related: []form.RelatedConfig{{
			Key:          "treatments",
			Title:        "Patient Treatments",
			Load:         r.treatmentsOf(apiclient.PatientTreatmentsPath),
			Columns:      treatmentColumns(),
			KeyField:     "treatmentId",
			MaxRows:      5,
			EmptyMessage: "No treatments found for this patient.",
		}},
	})
	r.add(&Entity{
		Name:     "doctors",
		Singular: "doctor",
		Resource: apiclient.Doctors,
		IDField:  "personId",
		Config:   DoctorConfig(catalog),
		Columns: []form.Column{
			{Key: "name", Title: "Name", Render: fullName},
			{Key: "department", Title: "Department", Render: orDash("department")},
			{Key: "phonenumber", Title: "Phone", Render: orDash("phonenumber")},
			{Key: "email", Title: "Email", Render: orDash("email")},
			{Key: "wardId", Title: "Ward", Render: orDash("wardId")},
		},
		related: []form.RelatedConfig{{
			Key:          "treatments",
			Title:        "Doctor Treatments",
			Load:         r.treatmentsOf(apiclient.DoctorTreatmentsPath),
			Columns:      treatmentColumns(),
			KeyField:     "treatmentId",
			MaxRows:      5,
			EmptyMessage: "No treatments found for this doctor.",
		}},
	})
	r.add(&Entity{
		Name:     "treatments",
		Singular: "treatment",
		Resource: apiclient.Treatments,
		IDField:  "treatmentId",
		Config:   TreatmentConfig(),
		Columns: []form.Column{
			{Key: "treatmentId", Title: "Treatment ID"},
			{Key: "date", Title: "Date", Render: dateCell("date")},
			{Key: "patientPersonId", Title: "Patient"},
			{Key: "doctorPersonId", Title: "Doctor"},
			{Key: "therapy", Title: "Therapy", Render: orDash("therapy")},
		},
	})
	r.add(&Entity{
		Name:     "wards",
		Singular: "ward",
		Resource: apiclient.Wards,
		IDField:  "wardId",
		Config:   WardConfig(),
		Columns: []form.Column{
			{Key: "wardId", Title: "Ward ID"},
			{Key: "wardName", Title: "Ward Name"},
			{Key: "capacity", Title: "Capacity"},
			{Key: "description", Title: "Description", Render: orDash("description")},
		},
	})
	return r
}

func (r *Registry) add(e *Entity) {
	r.entities = append(r.entities, e)
	r.byName[e.Name] = e
}

// Entity looks up an entity by its URL segment.
func (r *Registry) Entity(name string) (*Entity, bool) {
	e, ok := r.byName[name]
	return e, ok
}

func (r *Registry) Entities() []*Entity { return r.entities }

func (r *Registry) Catalog() *reference.Catalog { return r.catalog }

// Store returns the backend collection of e as untyped records.
func (r *Registry) Store(e *Entity) *apiclient.Collection[form.Record] {
	return apiclient.For[form.Record](r.client, e.Resource)
}

// Sources returns the loaders of every dependent data source.
func (r *Registry) Sources() map[string]form.Loader {
	return map[string]form.Loader{
		SourceWards:    r.listOf(apiclient.Wards),
		SourcePatients: r.listOf(apiclient.Patients),
		SourceDoctors:  r.listOf(apiclient.Doctors),
	}
}

func (r *Registry) listOf(resource string) form.Loader {
	return func(ctx context.Context) ([]form.Record, error) {
		return apiclient.For[form.Record](r.client, resource).List(ctx)
	}
}

func (r *Registry) treatmentsOf(path func(int64) string) func(context.Context, int64) ([]form.Record, error) {
	return func(ctx context.Context, id int64) ([]form.Record, error) {
		return apiclient.GetList[form.Record](ctx, r.client, path(id))
	}
}

// SessionOptions assembles the options of an add (id 0, ModeAdd) or edit
// session for e.
func (r *Registry) SessionOptions(e *Entity, mode form.Mode, id int64) form.Options {
	opts := form.Options{
		Mode:     mode,
		ID:       id,
		Store:    r.Store(e),
		Sources:  r.Sources(),
		Redirect: "/" + e.Name,
	}
	if mode == form.ModeEdit {
		opts.Related = e.related
	}
	return opts
}

// RecordID extracts the id of a listed record.
func (e *Entity) RecordID(rec form.Record) (int64, error) {
	id, ok := rec.Int(e.IDField)
	if !ok {
		return 0, fmt.Errorf("%s record without %s", e.Singular, e.IDField)
	}
	return id, nil
}
