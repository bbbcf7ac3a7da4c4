package web

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthsphere/admin/internal/dashboard"
	"github.com/healthsphere/admin/internal/domain/hospital"
	"github.com/healthsphere/admin/internal/platform/apiclient"
	"github.com/healthsphere/admin/internal/platform/middleware"
	"github.com/healthsphere/admin/internal/platform/sandbox"
	"github.com/healthsphere/admin/internal/platform/websocket"
	"github.com/healthsphere/admin/internal/reference"
	"github.com/healthsphere/admin/internal/registry"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []websocket.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev websocket.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Events() []websocket.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]websocket.Event(nil), p.events...)
}

type testEnv struct {
	store     *sandbox.Store
	backend   *httptest.Server
	server    *httptest.Server
	client    *http.Client
	events    *recordingPublisher
	snapshots *dashboard.Store
}

func newTestEnv(t *testing.T, addDelay time.Duration) *testEnv {
	t.Helper()

	store := sandbox.NewStore()
	be := echo.New()
	sandbox.NewServer(store, sandbox.DefaultSeedConfig(), sandbox.AuthConfig{}, zerolog.Nop()).RegisterRoutes(be)
	backend := httptest.NewServer(be)
	t.Cleanup(backend.Close)

	api := apiclient.New(apiclient.Config{BaseURL: backend.URL + "/api", Logger: zerolog.Nop()})
	catalog := reference.Default()
	renderer, err := NewRenderer()
	require.NoError(t, err)

	env := &testEnv{
		store:     store,
		backend:   backend,
		events:    &recordingPublisher{},
		snapshots: dashboard.NewStore(time.Minute),
	}

	e := echo.New()
	e.Renderer = renderer
	e.Use(middleware.RequestID())
	NewHandler(Config{
		Registry:  registry.New(api, catalog),
		Source:    dashboard.ClientSource{Client: api},
		Backend:   api,
		Snapshots: env.snapshots,
		Events:    env.events,
		Catalog:   catalog,
		AddDelay:  addDelay,
		Logger:    zerolog.Nop(),
	}).RegisterRoutes(e)
	env.server = httptest.NewServer(e)
	t.Cleanup(env.server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	env.client = &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return env
}

func (env *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := env.client.Get(env.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

// csrfToken fetches a page so the CSRF cookie is issued and returns it.
func (env *testEnv) csrfToken(t *testing.T) string {
	t.Helper()
	env.get(t, "/")
	u, _ := url.Parse(env.server.URL)
	for _, c := range env.client.Jar.Cookies(u) {
		if c.Name == "_csrf" {
			return c.Value
		}
	}
	t.Fatal("no csrf cookie issued")
	return ""
}

func (env *testEnv) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set(csrfFormField, env.csrfToken(t))
	resp, err := env.client.PostForm(env.server.URL+path, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (env *testEnv) seedBasics(t *testing.T) (hospital.Ward, hospital.Patient, hospital.Doctor, hospital.Treatment) {
	t.Helper()
	w, err := env.store.CreateWard(hospital.Ward{WardName: "ICU", Capacity: 1, Description: "Intensive care"})
	require.NoError(t, err)
	p, err := env.store.CreatePatient(hospital.Patient{Firstname: "Anna", Name: "Berg", WardID: &w.WardID})
	require.NoError(t, err)
	d, err := env.store.CreateDoctor(hospital.Doctor{Firstname: "Greg", Name: "House", Department: "Radiology"})
	require.NoError(t, err)
	tr, err := env.store.CreateTreatment(hospital.Treatment{Date: "2025-04-10", Therapy: "Physiotherapie Knie", PatientPersonID: p.PersonID, DoctorPersonID: d.PersonID})
	require.NoError(t, err)
	return w, p, d, tr
}

func TestRoot_RedirectsToSecretary(t *testing.T) {
	env := newTestEnv(t, 0)
	resp, _ := env.get(t, "/")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/dashboard/secretary", resp.Header.Get("Location"))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, 0)

	resp, body := env.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"backend":"up"`)

	env.backend.Close()
	resp, body = env.get(t, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, "degraded")
}

func TestList_RendersRows(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seedBasics(t)

	resp, body := env.get(t, "/patients")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Patient List")
	assert.Contains(t, body, "Anna Berg")
	assert.Contains(t, body, `/patients/1/edit`)
	assert.Contains(t, body, `action="/patients/1/delete?return=`)
	assert.NotContains(t, body, `class="pager"`)
}

func TestList_Paginates(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seedBasics(t)
	_, err := env.store.CreatePatient(hospital.Patient{Firstname: "Ben", Name: "Cole"})
	require.NoError(t, err)

	resp, body := env.get(t, "/patients?limit=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Anna Berg")
	assert.NotContains(t, body, "Ben Cole")
	assert.Contains(t, body, `class="pager"`)
	assert.Contains(t, body, "of 2")

	_, body = env.get(t, "/patients?limit=1&offset=1")
	assert.Contains(t, body, "Ben Cole")
	assert.NotContains(t, body, "Anna Berg")
}

func TestList_BackendDown(t *testing.T) {
	env := newTestEnv(t, 0)
	env.backend.Close()

	resp, body := env.get(t, "/wards")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body, "Failed to load wards")
}

func TestNew_RendersDependentOptions(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seedBasics(t)

	resp, body := env.get(t, "/patients/new")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Add New Patient")
	assert.Contains(t, body, "Select Ward")
	assert.Contains(t, body, "ICU (Capacity: 1)")
}

func TestCreate_ValidationKeepsInput(t *testing.T) {
	env := newTestEnv(t, 0)

	resp, body := env.post(t, "/patients/new", url.Values{"name": {"Berg"}, "email": {"anna@example.org"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "First Name is required")
	assert.Contains(t, body, `value="anna@example.org"`)
	assert.Equal(t, 0, env.store.Counts().Patients)
	assert.Empty(t, env.events.Events())
}

func TestCreate_DelayedRedirect(t *testing.T) {
	env := newTestEnv(t, 1500*time.Millisecond)

	resp, body := env.post(t, "/patients/new", url.Values{"firstname": {"Anna"}, "name": {"Berg"}, "wardId": {""}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Patient created successfully!")
	assert.Contains(t, body, `http-equiv="refresh"`)
	assert.Contains(t, body, "1.5;url=/patients")
	assert.Equal(t, 1, env.store.Counts().Patients)

	events := env.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, websocket.EventCollectionChanged, events[0].Type)
	assert.Equal(t, apiclient.Patients, events[0].Topic)
	assert.Equal(t, "created", events[0].Action)
}

func TestCreate_FlashAndRedirect(t *testing.T) {
	env := newTestEnv(t, 0)

	resp, _ := env.post(t, "/wards/new?return=/dashboard/secretary%3Ftab%3Dwards", url.Values{"wardId": {"5"}, "wardName": {"Neuro"}, "capacity": {"4"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard/secretary?tab=wards", resp.Header.Get("Location"))

	_, body := env.get(t, "/wards")
	assert.Contains(t, body, "Ward created successfully!")
	assert.Contains(t, body, "Neuro")

	_, body = env.get(t, "/wards")
	assert.NotContains(t, body, "Ward created successfully!")
}

func TestCreate_ExternalReturnIgnored(t *testing.T) {
	env := newTestEnv(t, 0)

	resp, _ := env.post(t, "/wards/new?return=https://evil.example/", url.Values{"wardId": {"5"}, "wardName": {"Neuro"}, "capacity": {"4"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/wards", resp.Header.Get("Location"))
}

func TestCreate_BackendConflictKeepsInput(t *testing.T) {
	env := newTestEnv(t, 0)
	w, _, _, _ := env.seedBasics(t)

	resp, body := env.post(t, "/patients/new", url.Values{
		"firstname": {"Ben"},
		"name":      {"Koch"},
		"wardId":    {"1"},
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, body, "ward "+w.WardName+" is full")
	assert.Contains(t, body, `value="Ben"`)
	assert.Equal(t, 1, env.store.Counts().Patients)
}

func TestCreate_RequiresCSRFToken(t *testing.T) {
	env := newTestEnv(t, 0)

	resp, err := env.client.PostForm(env.server.URL+"/wards/new", url.Values{"wardId": {"5"}, "wardName": {"Neuro"}, "capacity": {"4"}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Contains(t, []int{http.StatusBadRequest, http.StatusForbidden}, resp.StatusCode)
	assert.Equal(t, 0, env.store.Counts().Wards)
}

func TestEdit_LoadsRecordAndPanels(t *testing.T) {
	env := newTestEnv(t, 0)
	_, _, d, _ := env.seedBasics(t)

	resp, body := env.get(t, "/doctors/1/edit")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Edit Doctor")
	assert.Contains(t, body, `value="`+d.Firstname+`"`)
	assert.Contains(t, body, "Doctor Treatments")
	assert.Contains(t, body, "Physiotherapie Knie")
	assert.Contains(t, body, "Update Doctor")
}

func TestEdit_NotFound(t *testing.T) {
	env := newTestEnv(t, 0)

	resp, _ := env.get(t, "/patients/99/edit")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdate_AppliesPostedFields(t *testing.T) {
	env := newTestEnv(t, 0)
	_, p, d, tr := env.seedBasics(t)

	resp, _ := env.post(t, "/treatments/1/edit", url.Values{
		"treatmentId":     {"77"},
		"date":            {"2025-04-12"},
		"patientPersonId": {"1"},
		"doctorPersonId":  {"1"},
		"therapy":         {"Physiotherapie Schulter"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/treatments", resp.Header.Get("Location"))

	got, err := env.store.Treatment(tr.TreatmentID)
	require.NoError(t, err)
	assert.Equal(t, "Physiotherapie Schulter", got.Therapy)
	assert.Equal(t, "2025-04-12", got.Date)
	assert.Equal(t, p.PersonID, got.PatientPersonID)
	assert.Equal(t, d.PersonID, got.DoctorPersonID)
	_, err = env.store.Treatment(77)
	assert.Error(t, err, "read-only id must not be changed")

	events := env.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "updated", events[0].Action)
	assert.Equal(t, tr.TreatmentID, events[0].RecordID)
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seedBasics(t)

	resp, _ := env.post(t, "/doctors/1/delete", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	_, body := env.get(t, "/doctors")
	assert.Contains(t, body, "Failed to delete doctor")
	assert.Contains(t, body, "Greg House")
	assert.Empty(t, env.events.Events())

	resp, _ = env.post(t, "/patients/1/delete", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/patients", resp.Header.Get("Location"))
	_, body = env.get(t, "/patients")
	assert.Contains(t, body, "Patient deleted successfully!")
	assert.NotContains(t, body, "Anna Berg")

	events := env.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "deleted", events[0].Action)
	assert.Equal(t, int64(1), events[0].RecordID)
}

var snapPattern = regexp.MustCompile(`name="snap" value="([0-9a-f-]+)"`)

func TestSecretary_SnapshotReuseAndRefresh(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seedBasics(t)

	resp, body := env.get(t, "/dashboard/secretary")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Anna Berg")
	m := snapPattern.FindStringSubmatch(body)
	require.Len(t, m, 2)
	snap := m[1]
	assert.Equal(t, 1, env.snapshots.Len())

	_, err := env.store.CreatePatient(hospital.Patient{Firstname: "Clara", Name: "Lange"})
	require.NoError(t, err)

	_, body = env.get(t, "/dashboard/secretary?tab=patients&snap="+snap)
	assert.NotContains(t, body, "Clara Lange", "tab switches reuse the cached snapshot")

	_, body = env.get(t, "/dashboard/secretary?tab=patients&refresh=patients&snap="+snap)
	assert.Contains(t, body, "Clara Lange")
	assert.Equal(t, 1, env.snapshots.Len())
}

var addPatientPattern = regexp.MustCompile(`href="/patients/new\?return=([^"]+)"`)

// openAddPatient loads the patients tab and returns the Add link's return
// target as the dashboard wrote it, plus the snapshot id.
func (env *testEnv) openAddPatient(t *testing.T) (ret, snap string) {
	t.Helper()
	_, body := env.get(t, "/dashboard/secretary?tab=patients")
	m := addPatientPattern.FindStringSubmatch(body)
	require.Len(t, m, 2, "patients tab must offer an Add link")
	s := snapPattern.FindStringSubmatch(body)
	require.Len(t, s, 2)
	return html.UnescapeString(m[1]), s[1]
}

func TestSecretary_CreateFromDashboardShowsNewPatient(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seedBasics(t)
	ret, _ := env.openAddPatient(t)

	resp, _ := env.post(t, "/patients/new?return="+ret, url.Values{"firstname": {"Zora"}, "name": {"Quill"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	loc := resp.Header.Get("Location")
	assert.Contains(t, loc, "refresh=patients")

	resp, body := env.get(t, loc)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Patient created successfully!")
	assert.Contains(t, body, "Zora Quill")
	assert.Equal(t, 1, env.snapshots.Len(), "the existing snapshot is refreshed in place")
}

func TestSecretary_DelayedCreateReturnsWithRefresh(t *testing.T) {
	env := newTestEnv(t, 1500*time.Millisecond)
	env.seedBasics(t)
	ret, _ := env.openAddPatient(t)

	resp, body := env.post(t, "/patients/new?return="+ret, url.Values{"firstname": {"Zora"}, "name": {"Quill"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "1.5;url=/dashboard/secretary?refresh=patients")
}

func TestSecretary_DeleteFromDashboardDropsTreatments(t *testing.T) {
	env := newTestEnv(t, 0)
	_, p, _, _ := env.seedBasics(t)
	ret, snap := env.openAddPatient(t)

	_, body := env.get(t, "/dashboard/secretary?tab=treatments&snap="+snap)
	require.Contains(t, body, "Physiotherapie Knie")

	resp, _ := env.post(t, fmt.Sprintf("/patients/%d/delete?return=%s", p.PersonID, ret), nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	loc := resp.Header.Get("Location")
	assert.Contains(t, loc, "refresh=patients%2Ctreatments")

	_, body = env.get(t, loc)
	assert.Contains(t, body, "Patient deleted successfully!")
	assert.NotContains(t, body, "Anna Berg")

	_, body = env.get(t, "/dashboard/secretary?tab=treatments&snap="+snap)
	assert.NotContains(t, body, "Physiotherapie Knie")
}

func TestRefreshOnReturn(t *testing.T) {
	tests := []struct {
		target    string
		resources []string
		want      string
	}{
		{"/dashboard/secretary?snap=abc&tab=wards", []string{"wards"}, "/dashboard/secretary?refresh=wards&snap=abc&tab=wards"},
		{"/dashboard/secretary?refresh=wards&snap=abc", []string{"employees"}, "/dashboard/secretary?refresh=employees&snap=abc"},
		{"/dashboard/secretary?tab=wards", []string{"wards"}, "/dashboard/secretary?tab=wards"},
		{"/patients", []string{"patients"}, "/patients"},
		{"/dashboard/doctor?doctor=3", []string{"treatments"}, "/dashboard/doctor?doctor=3"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, refreshOnReturn(tt.target, tt.resources...), tt.target)
	}
}

func TestSecretary_Filters(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seedBasics(t)
	_, err := env.store.CreatePatient(hospital.Patient{Firstname: "Clara", Name: "Lange"})
	require.NoError(t, err)

	_, body := env.get(t, "/dashboard/secretary?tab=patients&q=lan")
	assert.Contains(t, body, "Clara Lange")
	assert.NotContains(t, body, "Anna Berg")

	_, body = env.get(t, "/dashboard/secretary?tab=patients&q=lan&clear=1")
	assert.Contains(t, body, "Clara Lange")
	assert.Contains(t, body, "Anna Berg")
}

func TestSecretary_WardCapacityPanel(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seedBasics(t)

	_, body := env.get(t, "/dashboard/secretary?tab=wards")
	assert.Contains(t, body, "0 free of 1 beds")
	assert.Contains(t, body, "Anna Berg")
}

func TestSecretary_Calendar(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seedBasics(t)

	resp, body := env.get(t, "/dashboard/secretary?tab=calendar&ref=2025-04-01")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "April 2025")
	assert.Contains(t, body, "Anna B.")
	assert.Contains(t, body, "Greg House")
	assert.Contains(t, body, "ref=2025-03-01")
	assert.Contains(t, body, "ref=2025-05-01")

	_, body = env.get(t, "/dashboard/secretary?tab=calendar&ref=2025-04-01&cal_doctor=99")
	assert.NotContains(t, body, "Anna B.")
}

func TestSecretary_BackendDown(t *testing.T) {
	env := newTestEnv(t, 0)
	env.backend.Close()

	resp, body := env.get(t, "/dashboard/secretary")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body, "Failed to load dashboard data")
	assert.NotContains(t, body, "Loaded ")
}

func TestDoctorDashboard(t *testing.T) {
	env := newTestEnv(t, 0)
	env.seedBasics(t)

	resp, body := env.get(t, "/dashboard/doctor")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Select a doctor")

	resp, body = env.get(t, "/dashboard/doctor?doctor=1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Greg House")
	assert.Contains(t, body, "Physiotherapie Knie")
	assert.Contains(t, body, "10.04.2025")
	assert.Contains(t, body, "Anna Berg")

	_, body = env.get(t, "/dashboard/doctor?doctor=1&patient=nobody")
	assert.Contains(t, body, "No treatments found.")

	resp, _ = env.get(t, "/dashboard/doctor?doctor=42")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLocalPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "/fallback"},
		{"/patients", "/patients"},
		{"/dashboard/secretary?tab=wards", "/dashboard/secretary?tab=wards"},
		{"//evil.example/x", "/fallback"},
		{"https://evil.example/", "/fallback"},
		{"patients", "/fallback"},
		{"/\\evil.example", "/fallback"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, localPath(tt.in, "/fallback"), tt.in)
	}
}

func TestPopFlash(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: flashCookie, Value: url.QueryEscape("success|Saved!")})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	f := popFlash(c)
	require.NotNil(t, f)
	assert.Equal(t, FlashSuccess, f.Kind)
	assert.Equal(t, "Saved!", f.Message)
	assert.True(t, strings.Contains(rec.Header().Get("Set-Cookie"), "Max-Age=0"))
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t, 0)

	resp, body := env.get(t, "/static/console.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "collection.changed")
}
