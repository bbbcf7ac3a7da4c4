// Package apiclient is the typed client of the hospital REST backend. Every
// failure is reported as an *Error with a category; calls are never retried.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/healthsphere/admin/internal/domain/hospital"
)

// Backend collection paths.
const (
	Patients   = "patients"
	Doctors    = "employees"
	Treatments = "treatments"
	Wards      = "wards"
)

const (
	requestIDHeader = "X-Request-ID"
	maxBodyBytes    = 4 << 20
)

// Config configures a Client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	SigningKey string
	Issuer     string
	Audience   string
	HTTPClient *http.Client
	Logger     zerolog.Logger
	Metrics    *Metrics
}

// Client talks to the backend below BaseURL (".../api").
type Client struct {
	baseURL string
	http    *http.Client
	signer  *tokenSigner
	logger  zerolog.Logger
	metrics *Metrics
}

func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    hc,
		signer:  newTokenSigner(cfg.SigningKey, cfg.Issuer, cfg.Audience),
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

type requestIDKey struct{}

// WithRequestID attaches the inbound request id so backend calls carry it.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// do performs one call. When out is non-nil and the response carries a JSON
// body it is decoded into out and decoded is true.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) (decoded bool, err error) {
	start := time.Now()
	resource := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 2)[0]
	status := 0
	defer func() {
		c.metrics.observe(resource, method, CategoryOf(err), time.Since(start))
		c.logger.Debug().
			Str("request_id", requestIDFrom(ctx)).
			Str("method", method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("backend call")
	}()

	var body io.Reader
	if in != nil {
		buf, mErr := json.Marshal(in)
		if mErr != nil {
			return false, fmt.Errorf("%s: encode body: %w", op, mErr)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return false, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if rid := requestIDFrom(ctx); rid != "" {
		req.Header.Set(requestIDHeader, rid)
	}
	if c.signer != nil {
		token, sErr := c.signer.sign()
		if sErr != nil {
			return false, sErr
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, &Error{Category: CategoryNetwork, Op: op, Message: "backend unreachable", Err: err}
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return false, &Error{Category: CategoryNetwork, Op: op, Status: status, Message: "reading backend response failed", Err: err}
	}

	if cat := Classify(status); cat != CategoryNone {
		return false, &Error{Category: cat, Op: op, Status: status, Message: messageFromBody(status, raw)}
	}

	if out == nil || !isJSON(resp.Header.Get("Content-Type"), raw) {
		return false, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return false, &Error{Category: CategoryServer, Op: op, Status: status, Message: "malformed backend response", Err: err}
	}
	return true, nil
}

func isJSON(contentType string, raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return false
	}
	if strings.Contains(contentType, "json") {
		return true
	}
	return trimmed[0] == '{' || trimmed[0] == '['
}

func idPath(resource string, id int64) string {
	return "/" + resource + "/" + strconv.FormatInt(id, 10)
}

// Collection is the CRUD surface of one backend collection decoded as T.
type Collection[T any] struct {
	client   *Client
	resource string
}

// For binds a collection path to a record type.
func For[T any](c *Client, resource string) *Collection[T] {
	return &Collection[T]{client: c, resource: resource}
}

// Resource returns the backend path segment of the collection.
func (col *Collection[T]) Resource() string { return col.resource }

func (col *Collection[T]) List(ctx context.Context) ([]T, error) {
	return GetList[T](ctx, col.client, "/"+col.resource)
}

func (col *Collection[T]) Get(ctx context.Context, id int64) (T, error) {
	var out T
	ok, err := col.client.do(ctx, "get "+col.resource, http.MethodGet, idPath(col.resource, id), nil, &out)
	if err != nil {
		return out, err
	}
	if !ok {
		return out, &Error{Category: CategoryServer, Op: "get " + col.resource, Status: http.StatusOK, Message: "malformed backend response"}
	}
	return out, nil
}

// Create posts rec. Backends that answer with a confirmation sentence
// instead of the stored record yield rec itself.
func (col *Collection[T]) Create(ctx context.Context, rec T) (T, error) {
	var out T
	ok, err := col.client.do(ctx, "create "+col.resource, http.MethodPost, "/"+col.resource, rec, &out)
	if err != nil {
		return out, err
	}
	if !ok {
		return rec, nil
	}
	return out, nil
}

func (col *Collection[T]) Update(ctx context.Context, id int64, rec T) (T, error) {
	var out T
	ok, err := col.client.do(ctx, "update "+col.resource, http.MethodPut, idPath(col.resource, id), rec, &out)
	if err != nil {
		return out, err
	}
	if !ok {
		return rec, nil
	}
	return out, nil
}

func (col *Collection[T]) Delete(ctx context.Context, id int64) error {
	_, err := col.client.do(ctx, "delete "+col.resource, http.MethodDelete, idPath(col.resource, id), nil, nil)
	return err
}

// GetList fetches a JSON array below the base URL. A null or empty body is
// an empty list.
func GetList[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var out []T
	if _, err := c.do(ctx, "list "+strings.TrimPrefix(path, "/"), http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// PatientTreatmentsPath is the path of the treatments of one patient.
func PatientTreatmentsPath(id int64) string {
	return "/treatments/patient/" + strconv.FormatInt(id, 10)
}

// DoctorTreatmentsPath is the path of the treatments of one doctor.
func DoctorTreatmentsPath(id int64) string {
	return "/treatments/doctor/" + strconv.FormatInt(id, 10)
}

const wardCapacitiesPath = "/wards/capacity/all"

func (c *Client) Patients() *Collection[hospital.Patient] {
	return For[hospital.Patient](c, Patients)
}

func (c *Client) Doctors() *Collection[hospital.Doctor] {
	return For[hospital.Doctor](c, Doctors)
}

func (c *Client) Treatments() *Collection[hospital.Treatment] {
	return For[hospital.Treatment](c, Treatments)
}

func (c *Client) Wards() *Collection[hospital.Ward] {
	return For[hospital.Ward](c, Wards)
}

func (c *Client) TreatmentsByPatient(ctx context.Context, id int64) ([]hospital.Treatment, error) {
	return GetList[hospital.Treatment](ctx, c, PatientTreatmentsPath(id))
}

func (c *Client) TreatmentsByDoctor(ctx context.Context, id int64) ([]hospital.Treatment, error) {
	return GetList[hospital.Treatment](ctx, c, DoctorTreatmentsPath(id))
}

// WardCapacities returns the backend's occupancy report for every ward.
func (c *Client) WardCapacities(ctx context.Context) ([]hospital.WardCapacity, error) {
	return GetList[hospital.WardCapacity](ctx, c, wardCapacitiesPath)
}

// Health checks that the backend answers.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, "health", http.MethodGet, "/health", nil, nil)
	return err
}
