package sandbox

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/healthsphere/admin/internal/domain/hospital"
)

// AuthConfig enables bearer token checks when Key is set.
type AuthConfig struct {
	Key      string
	Issuer   string
	Audience string
}

// Server exposes a Store under /api the way the hospital backend does:
// JSON for reads, short plain-text confirmations for writes.
type Server struct {
	store  *Store
	seeder *Seeder
	auth   AuthConfig
	logger zerolog.Logger
}

func NewServer(store *Store, seed SeedConfig, auth AuthConfig, logger zerolog.Logger) *Server {
	return &Server{
		store:  store,
		seeder: NewSeeder(seed),
		auth:   auth,
		logger: logger,
	}
}

// Seed regenerates the data set.
func (s *Server) Seed() (*SeedResult, error) {
	return s.seeder.Generate(s.store)
}

// RegisterRoutes mounts the backend surface on e.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/health/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	g := api.Group("", s.requireToken)

	g.GET("/patients", func(c echo.Context) error { return c.JSON(http.StatusOK, s.store.Patients()) })
	g.GET("/patients/:id", getOne(s.store.Patient))
	g.POST("/patients", create(s.store.CreatePatient, "Patient created"))
	g.PUT("/patients/:id", update(s.store.UpdatePatient, "Patient updated"))
	g.DELETE("/patients/:id", remove(s.store.DeletePatient, "Patient deleted"))

	g.GET("/employees", func(c echo.Context) error { return c.JSON(http.StatusOK, s.store.Doctors()) })
	g.GET("/employees/department/:department", s.handleDoctorsByDepartment)
	g.GET("/employees/:id", getOne(s.store.Doctor))
	g.POST("/employees", create(s.store.CreateDoctor, "Employee created"))
	g.PUT("/employees/:id", update(s.store.UpdateDoctor, "Employee updated"))
	g.DELETE("/employees/:id", remove(s.store.DeleteDoctor, "Employee deleted"))

	g.GET("/treatments", func(c echo.Context) error { return c.JSON(http.StatusOK, s.store.Treatments()) })
	g.GET("/treatments/patient/:id", s.handleTreatmentsBy(func(t hospital.Treatment) int64 { return t.PatientPersonID }))
	g.GET("/treatments/doctor/:id", s.handleTreatmentsBy(func(t hospital.Treatment) int64 { return t.DoctorPersonID }))
	g.GET("/treatments/:id", getOne(s.store.Treatment))
	g.POST("/treatments", create(s.store.CreateTreatment, "Treatment created"))
	g.PUT("/treatments/:id", update(s.store.UpdateTreatment, "Treatment updated"))
	g.DELETE("/treatments/:id", remove(s.store.DeleteTreatment, "Treatment deleted"))

	g.GET("/wards", func(c echo.Context) error { return c.JSON(http.StatusOK, s.store.Wards()) })
	g.GET("/wards/capacity/all", func(c echo.Context) error { return c.JSON(http.StatusOK, s.store.Capacities()) })
	g.GET("/wards/:id/capacity", s.handleWardCapacity)
	g.GET("/wards/:id", getOne(s.store.Ward))
	g.POST("/wards", create(s.store.CreateWard, "Ward created"))
	g.PUT("/wards/:id", update(s.store.UpdateWard, "Ward updated"))
	g.DELETE("/wards/:id", remove(s.store.DeleteWard, "Ward deleted"))

	g.POST("/sandbox/seed", s.handleSeed)
	g.POST("/sandbox/reset", s.handleReset)
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

func (s *Server) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	if s.auth.Key == "" {
		return next
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.auth.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.auth.Issuer))
	}
	if s.auth.Audience != "" {
		opts = append(opts, jwt.WithAudience(s.auth.Audience))
	}
	parser := jwt.NewParser(opts...)
	key := []byte(s.auth.Key)

	return func(c echo.Context) error {
		raw, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
		if !ok || raw == "" {
			return c.String(http.StatusUnauthorized, "missing bearer token")
		}
		_, err := parser.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
			return key, nil
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("path", c.Path()).Msg("rejected backend token")
			return c.String(http.StatusUnauthorized, "invalid bearer token")
		}
		return next(c)
	}
}

// ---------------------------------------------------------------------------
// Generic handlers
// ---------------------------------------------------------------------------

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, badRequest("invalid id %q", c.Param("id"))
	}
	return id, nil
}

// respond writes a StatusError as plain text.
func respond(c echo.Context, err error) error {
	var se *StatusError
	if errors.As(err, &se) {
		return c.String(se.Code, se.Message)
	}
	return err
}

func bindBody(c echo.Context, v any) error {
	return (&echo.DefaultBinder{}).BindBody(c, v)
}

func getOne[T any](get func(int64) (T, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c)
		if err != nil {
			return respond(c, err)
		}
		rec, err := get(id)
		if err != nil {
			return respond(c, err)
		}
		return c.JSON(http.StatusOK, rec)
	}
}

func create[T any](add func(T) (T, error), message string) echo.HandlerFunc {
	return func(c echo.Context) error {
		var rec T
		if err := bindBody(c, &rec); err != nil {
			return c.String(http.StatusBadRequest, "malformed request body")
		}
		if _, err := add(rec); err != nil {
			return respond(c, err)
		}
		return c.String(http.StatusCreated, message)
	}
}

func update[T any](put func(int64, T) (T, error), message string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c)
		if err != nil {
			return respond(c, err)
		}
		var rec T
		if err := bindBody(c, &rec); err != nil {
			return c.String(http.StatusBadRequest, "malformed request body")
		}
		if _, err := put(id, rec); err != nil {
			return respond(c, err)
		}
		return c.String(http.StatusOK, message)
	}
}

func remove(del func(int64) error, message string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c)
		if err != nil {
			return respond(c, err)
		}
		if err := del(id); err != nil {
			return respond(c, err)
		}
		return c.String(http.StatusOK, message)
	}
}

// ---------------------------------------------------------------------------
// Specific handlers
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "UP",
		"counts": s.store.Counts(),
	})
}

func (s *Server) handleDoctorsByDepartment(c echo.Context) error {
	dept := c.Param("department")
	out := []hospital.Doctor{}
	for _, d := range s.store.Doctors() {
		if strings.EqualFold(d.Department, dept) {
			out = append(out, d)
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleTreatmentsBy(key func(hospital.Treatment) int64) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c)
		if err != nil {
			return respond(c, err)
		}
		return c.JSON(http.StatusOK, s.store.TreatmentsWhere(func(t hospital.Treatment) bool {
			return key(t) == id
		}))
	}
}

func (s *Server) handleWardCapacity(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respond(c, err)
	}
	for _, wc := range s.store.Capacities() {
		if wc.WardID == id {
			return c.JSON(http.StatusOK, wc)
		}
	}
	return respond(c, notFound("ward", id))
}

func (s *Server) handleSeed(c echo.Context) error {
	result, err := s.Seed()
	if err != nil {
		return c.String(http.StatusInternalServerError, err.Error())
	}
	s.logger.Info().
		Int("patients", result.Patients).
		Int("employees", result.Doctors).
		Int("treatments", result.Treatments).
		Int("wards", result.Wards).
		Msg("sandbox seeded")
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleReset(c echo.Context) error {
	s.store.Reset()
	return c.String(http.StatusOK, "Sandbox reset")
}
