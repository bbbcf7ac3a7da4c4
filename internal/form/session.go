package form

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Mode int

const (
	ModeAdd Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "add"
}

// State is the lifecycle position of a Session.
type State int

const (
	Initializing State = iota
	LoadingDependentData
	Ready
	Validating
	Saving
	Succeeded
	Failed
	Cancelled
)

var stateNames = [...]string{
	"initializing", "loading", "ready", "validating", "saving", "succeeded", "failed", "cancelled",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

var (
	ErrNotReady      = errors.New("form is not ready")
	ErrNotLoaded     = errors.New("form data could not be loaded")
	ErrUnknownField  = errors.New("unknown field")
	ErrReadOnlyField = errors.New("field is read-only")
)

// ValidationError blocks a save before any network call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Outcome tells the caller where to navigate after a save or cancel.
type Outcome struct {
	Redirect string
	Message  string
	Delay    time.Duration
}

// Options wires a Session to its surroundings.
type Options struct {
	Mode    Mode
	ID      int64
	Store   Store
	Sources map[string]Loader
	Related []RelatedConfig
	// Redirect is the navigation target after save or cancel.
	Redirect string
	// AddDelay postpones the redirect after a successful create.
	AddDelay time.Duration
	Logger   zerolog.Logger
}

// Session is one add or edit form. It exclusively owns its record; dependent
// data and related panels are loaded fresh for every session.
type Session struct {
	cfg  *Configuration
	opts Options

	state   State
	record  Record
	deps    DependentData
	depErrs map[string]error
	panels  []Panel
	loadErr error
	saveErr error
	invalid string
}

func NewSession(cfg *Configuration, opts Options) *Session {
	return &Session{
		cfg:     cfg,
		opts:    opts,
		state:   Initializing,
		record:  Record{},
		deps:    DependentData{},
		depErrs: map[string]error{},
	}
}

// Load seeds or fetches the record and loads every dependent source and
// related panel in parallel. It returns once all loads have settled. A
// failed entity fetch is returned; failed sources and panels only degrade
// their own control or table.
func (s *Session) Load(ctx context.Context) error {
	if s.state != Initializing {
		return ErrNotReady
	}
	s.state = LoadingDependentData

	if s.opts.Mode == ModeAdd {
		rec := make(Record, len(s.cfg.Fields))
		for _, f := range s.cfg.Fields {
			v := ""
			if f.Default != nil {
				v = f.Default()
			}
			rec[f.Name] = v
		}
		s.record = rec
	}

	var (
		g       errgroup.Group
		mu      sync.Mutex
		entity  Record
		related = make([]Panel, len(s.opts.Related))
	)

	if s.opts.Mode == ModeEdit {
		g.Go(func() error {
			rec, err := s.opts.Store.Get(ctx, s.opts.ID)
			if err != nil {
				return err
			}
			entity = rec
			return nil
		})
		for i, rc := range s.opts.Related {
			g.Go(func() error {
				var rows []Record
				var err error
				if rc.Load == nil {
					err = fmt.Errorf("no loader for %s", rc.Key)
				} else {
					rows, err = rc.Load(ctx, s.opts.ID)
				}
				if err != nil {
					s.opts.Logger.Warn().Err(err).Str("entity", s.cfg.Entity).Str("panel", rc.Key).Msg("related data load failed")
				}
				related[i] = buildPanel(rc, rows, err)
				return nil
			})
		}
	}

	for _, name := range s.cfg.Sources() {
		load := s.opts.Sources[name]
		g.Go(func() error {
			var rows []Record
			var err error
			if load == nil {
				err = fmt.Errorf("no loader for %s", name)
			} else {
				rows, err = load(ctx)
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.opts.Logger.Warn().Err(err).Str("entity", s.cfg.Entity).Str("source", name).Msg("dependent data load failed")
				s.depErrs[name] = err
				s.deps[name] = nil
				return nil
			}
			s.deps[name] = rows
			return nil
		})
	}

	err := g.Wait()
	s.panels = related
	s.state = Ready
	if err != nil {
		s.loadErr = err
		return err
	}
	if s.opts.Mode == ModeEdit {
		s.record = entity.Clone()
	}
	return nil
}

// Set replaces one field value. Every other field is left untouched.
func (s *Session) Set(name, value string) error {
	if s.state != Ready {
		return ErrNotReady
	}
	f, ok := s.cfg.Field(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	if f.Disabled && s.opts.Mode == ModeEdit {
		return fmt.Errorf("%w: %s", ErrReadOnlyField, name)
	}
	s.record = s.record.With(name, value)
	s.invalid = ""
	return nil
}

// Save validates, transforms and persists the record. Validation failures
// are returned as *ValidationError without contacting the store. On any
// failure the session returns to Ready with the record intact.
func (s *Session) Save(ctx context.Context) (Outcome, error) {
	if s.state != Ready {
		return Outcome{}, ErrNotReady
	}
	if s.loadErr != nil {
		return Outcome{}, ErrNotLoaded
	}

	s.state = Validating
	if msg := s.validate(); msg != "" {
		s.invalid = msg
		s.state = Ready
		return Outcome{}, &ValidationError{Message: msg}
	}
	s.invalid = ""

	s.state = Saving
	payload := s.record.Clone()
	if s.cfg.Transform != nil {
		payload = s.cfg.Transform(payload)
	}

	var err error
	if s.opts.Mode == ModeEdit {
		_, err = s.opts.Store.Update(ctx, s.opts.ID, payload)
	} else {
		_, err = s.opts.Store.Create(ctx, payload)
	}
	if err != nil {
		s.state = Failed
		s.opts.Logger.Warn().Err(err).Str("entity", s.cfg.Entity).Str("mode", s.opts.Mode.String()).Msg("save failed")
		s.saveErr = err
		s.state = Ready
		return Outcome{}, err
	}

	s.saveErr = nil
	s.state = Succeeded
	if s.opts.Mode == ModeEdit {
		return Outcome{Redirect: s.opts.Redirect, Message: s.cfg.UpdateSuccessMessage}, nil
	}
	return Outcome{Redirect: s.opts.Redirect, Message: s.cfg.SuccessMessage, Delay: s.opts.AddDelay}, nil
}

func (s *Session) validate() string {
	for _, f := range s.cfg.Fields {
		if f.Required && strings.TrimSpace(s.record.String(f.Name)) == "" {
			return f.Label + " is required"
		}
	}
	if s.cfg.Validate != nil {
		return s.cfg.Validate(s.record)
	}
	return ""
}

// Cancel discards the record and navigates away without saving.
func (s *Session) Cancel() Outcome {
	s.state = Cancelled
	s.record = nil
	return Outcome{Redirect: s.opts.Redirect}
}

func (s *Session) State() State           { return s.state }
func (s *Session) Mode() Mode             { return s.opts.Mode }
func (s *Session) ID() int64              { return s.opts.ID }
func (s *Session) Config() *Configuration { return s.cfg }
func (s *Session) Record() Record         { return s.record.Clone() }
func (s *Session) Panels() []Panel        { return s.panels }

// DependentErrors maps each failed source to its load error.
func (s *Session) DependentErrors() map[string]error { return s.depErrs }

// LoadErr is the entity fetch failure of an edit session.
func (s *Session) LoadErr() error { return s.loadErr }

// SaveErr is the failure of the last save attempt.
func (s *Session) SaveErr() error { return s.saveErr }

// Invalid is the message of the last failed validation.
func (s *Session) Invalid() string { return s.invalid }

// Controls renders the current record.
func (s *Session) Controls() []Control {
	return Render(s.cfg, s.opts.Mode, s.record, s.deps, s.depErrs)
}
