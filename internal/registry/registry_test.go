package registry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthsphere/admin/internal/form"
	"github.com/healthsphere/admin/internal/platform/apiclient"
	"github.com/healthsphere/admin/internal/reference"
)

type recorded struct {
	method string
	path   string
	body   map[string]any
}

type fakeBackend struct {
	mu       sync.Mutex
	requests []recorded
	routes   map[string]string
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recorded{method: r.Method, path: r.URL.Path}
	if r.Body != nil {
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &rec.body)
		}
	}
	b.mu.Lock()
	b.requests = append(b.requests, rec)
	b.mu.Unlock()

	if body, ok := b.routes[r.Method+" "+r.URL.Path]; ok {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
		return
	}
	if r.Method == http.MethodGet {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, "[]")
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (b *fakeBackend) writes() []recorded {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []recorded
	for _, r := range b.requests {
		if r.method != http.MethodGet {
			out = append(out, r)
		}
	}
	return out
}

func newTestRegistry(t *testing.T, routes map[string]string) (*Registry, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{routes: routes}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	client := apiclient.New(apiclient.Config{BaseURL: srv.URL + "/api", Logger: zerolog.Nop()})
	return New(client, reference.Default()), backend
}

func session(t *testing.T, r *Registry, name string, mode form.Mode, id int64) *form.Session {
	t.Helper()
	e, ok := r.Entity(name)
	require.True(t, ok, name)
	s := form.NewSession(e.Config, r.SessionOptions(e, mode, id))
	require.NoError(t, s.Load(context.Background()))
	return s
}

func TestPatientAdd_MissingFirstName(t *testing.T) {
	r, backend := newTestRegistry(t, nil)
	s := session(t, r, "patients", form.ModeAdd, 0)

	require.NoError(t, s.Set("firstname", ""))
	require.NoError(t, s.Set("name", "Doe"))
	_, err := s.Save(context.Background())

	require.Error(t, err)
	assert.Equal(t, "First Name is required", err.Error())
	assert.Empty(t, backend.writes())
}

func TestWardAdd_NonPositiveCapacity(t *testing.T) {
	r, backend := newTestRegistry(t, nil)
	s := session(t, r, "wards", form.ModeAdd, 0)

	require.NoError(t, s.Set("wardId", "5"))
	require.NoError(t, s.Set("wardName", "ICU"))
	require.NoError(t, s.Set("capacity", "-1"))
	_, err := s.Save(context.Background())

	require.Error(t, err)
	assert.Equal(t, "Capacity must be greater than 0", err.Error())
	assert.Empty(t, backend.writes())
}

func TestTreatmentEdit_ChangeDoctor(t *testing.T) {
	r, backend := newTestRegistry(t, map[string]string{
		"GET /api/treatments/42": `{"treatmentId":42,"date":"2025-06-15","therapy":"Physio","patientPersonId":3,"doctorPersonId":7}`,
		"GET /api/employees":     `[{"personId":7,"firstname":"Gregory","name":"House","department":"Internal Medicine"},{"personId":9,"firstname":"Lisa","name":"Cuddy","department":"Surgery"}]`,
		"GET /api/patients":      `[{"personId":3,"firstname":"Anna","name":"Schmidt"}]`,
	})
	s := session(t, r, "treatments", form.ModeEdit, 42)

	controls := s.Controls()
	assert.Equal(t, "42", controls[0].Value)
	assert.True(t, controls[0].Disabled)
	assert.Equal(t, []form.Option{
		{Value: "", Label: "Select Doctor"},
		{Value: "7", Label: "Gregory House - Internal Medicine"},
		{Value: "9", Label: "Lisa Cuddy - Surgery"},
	}, controls[3].Options)

	require.NoError(t, s.Set("doctorPersonId", "9"))
	out, err := s.Save(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/treatments", out.Redirect)
	assert.Zero(t, out.Delay)
	assert.Equal(t, "Treatment updated successfully!", out.Message)

	writes := backend.writes()
	require.Len(t, writes, 1)
	assert.Equal(t, http.MethodPut, writes[0].method)
	assert.Equal(t, "/api/treatments/42", writes[0].path)
	assert.Equal(t, float64(9), writes[0].body["doctorPersonId"])
	assert.Equal(t, float64(3), writes[0].body["patientPersonId"])
	assert.Equal(t, float64(42), writes[0].body["treatmentId"])
	assert.Equal(t, "Physio", writes[0].body["therapy"])
}

func TestPatientEdit_RelatedTreatments(t *testing.T) {
	r, _ := newTestRegistry(t, map[string]string{
		"GET /api/patients/3": `{"personId":3,"firstname":"Anna","name":"Schmidt","wardId":2}`,
		"GET /api/treatments/patient/3": `[
			{"treatmentId":1,"date":"2025-06-15","therapy":"a"},
			{"treatmentId":2,"date":"2025-06-16","therapy":"b"},
			{"treatmentId":3,"date":"2025-06-17","therapy":"c"},
			{"treatmentId":4,"date":"2025-06-18","therapy":"d"},
			{"treatmentId":5,"date":"2025-06-19","therapy":"e"},
			{"treatmentId":6,"date":"2025-06-20","therapy":"f"}]`,
		"GET /api/wards": `[{"wardId":2,"wardName":"Cardio","capacity":10}]`,
	})
	s := session(t, r, "patients", form.ModeEdit, 3)

	panels := s.Panels()
	require.Len(t, panels, 1)
	assert.Equal(t, "Patient Treatments", panels[0].Title)
	assert.Len(t, panels[0].Rows, 5)
	assert.Equal(t, 1, panels[0].Hidden)
	assert.Equal(t, []string{"1", "15.06.2025", "a"}, panels[0].Rows[0].Cells)

	ward := s.Controls()[6]
	assert.Equal(t, "2", ward.Value)
	assert.Equal(t, "Cardio (Capacity: 10)", ward.Options[1].Label)
}

func TestDoctorEdit_NoTreatments(t *testing.T) {
	r, _ := newTestRegistry(t, map[string]string{
		"GET /api/employees/7": `{"personId":7,"firstname":"Gregory","name":"House","department":"Surgery"}`,
	})
	s := session(t, r, "doctors", form.ModeEdit, 7)

	panels := s.Panels()
	require.Len(t, panels, 1)
	assert.Equal(t, "No treatments found for this doctor.", panels[0].Empty)
}

func TestTreatmentAdd_DefaultsToToday(t *testing.T) {
	r, _ := newTestRegistry(t, nil)
	s := session(t, r, "treatments", form.ModeAdd, 0)
	assert.Equal(t, form.Today(), s.Record()["date"])
	assert.Empty(t, s.Panels())
}

func TestTreatmentAdd_CreatesWithoutEmptyID(t *testing.T) {
	r, backend := newTestRegistry(t, nil)
	e, _ := r.Entity("treatments")
	payload := e.Config.Transform(form.Record{
		"treatmentId": "", "date": "2025-06-15", "patientPersonId": "3", "doctorPersonId": "7", "therapy": "x",
	})
	_, hasID := payload["treatmentId"]
	assert.False(t, hasID)
	assert.Equal(t, int64(3), payload["patientPersonId"])
	assert.Empty(t, backend.writes())
}

func TestTransforms_Idempotent(t *testing.T) {
	r, _ := newTestRegistry(t, nil)
	inputs := map[string]form.Record{
		"patients":   {"firstname": "A", "name": "B", "wardId": "4"},
		"doctors":    {"firstname": "A", "name": "B", "department": "Surgery", "salary": "4200.50", "wardId": ""},
		"treatments": {"treatmentId": "42", "date": "2025-06-15", "patientPersonId": "3", "doctorPersonId": "9"},
		"wards":      {"wardId": "5", "wardName": "ICU", "capacity": "8"},
	}
	for name, in := range inputs {
		e, ok := r.Entity(name)
		require.True(t, ok)
		once := e.Config.Transform(in)
		twice := e.Config.Transform(once)
		assert.Equal(t, once, twice, name)
	}
}

func TestDoctorConfig_DepartmentsFromCatalog(t *testing.T) {
	cfg := DoctorConfig(&reference.Catalog{Departments: []string{"Oncology"}})
	f, ok := cfg.Field("department")
	require.True(t, ok)
	sel := f.Kind.(form.Select)
	assert.Equal(t, []form.Option{{Value: "Oncology", Label: "Oncology"}}, sel.Options)
}

func TestWardConfig_Validate(t *testing.T) {
	cfg := WardConfig()
	assert.Equal(t, "", cfg.Validate(form.Record{"capacity": "3"}))
	assert.Equal(t, "Capacity must be greater than 0", cfg.Validate(form.Record{"capacity": "0"}))
	assert.Equal(t, "Capacity must be a whole number", cfg.Validate(form.Record{"capacity": "many"}))
}

func TestRegistry_Entities(t *testing.T) {
	r, _ := newTestRegistry(t, nil)
	var names []string
	for _, e := range r.Entities() {
		names = append(names, e.Name)
		assert.NoError(t, e.Config.Check())
	}
	assert.Equal(t, []string{"patients", "doctors", "treatments", "wards"}, names)

	doctors, _ := r.Entity("doctors")
	assert.Equal(t, "employees", doctors.Resource)
	_, ok := r.Entity("nurses")
	assert.False(t, ok)
}

func TestEntity_RecordID(t *testing.T) {
	r, _ := newTestRegistry(t, nil)
	e, _ := r.Entity("wards")
	id, err := e.RecordID(form.Record{"wardId": json.Number("5")})
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)

	_, err = e.RecordID(form.Record{})
	assert.Error(t, err)
}
