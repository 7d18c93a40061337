package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"autopub/internal/storage"

	"github.com/google/uuid"
)

const (
	RunKeyPrefix   = "workflow_"
	PreferencesKey = "preferences"

	interruptedMessage = "interrupted before completion; retry manually"
	persistTimeout     = 5 * time.Second
)

// Defaults seed every new run.
type Defaults struct {
	Data   WorkflowData
	Config WorkflowConfig
}

type StoreOption func(*Store)

func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

func WithLogger(log *slog.Logger) StoreOption {
	return func(s *Store) { s.log = log }
}

// Store is the single source of truth for the active run. Every mutation is
// followed by a synchronous persist; a failed write is logged and the
// in-memory state stays authoritative.
type Store struct {
	mu       sync.Mutex
	kv       storage.KV
	defaults Defaults
	now      func() time.Time
	log      *slog.Logger

	state State
}

// NewStore creates a store holding a fresh, unpersisted run. Call Restore to
// resume the latest incomplete run instead.
func NewStore(kv storage.KV, defaults Defaults, opts ...StoreOption) *Store {
	s := &Store{
		kv:       kv,
		defaults: defaults,
		now:      time.Now,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = s.freshState()
	return s
}

func NewRunID(t time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s%d_%s", RunKeyPrefix, t.UnixMilli(), suffix)
}

func (s *Store) freshState() State {
	created := s.now()
	st := State{
		Version:   SchemaVersion,
		ID:        NewRunID(created),
		Steps:     []Step{},
		Data:      s.defaults.Data.clone(),
		Config:    s.defaults.Config.clone(),
		Timestamp: created.UnixMilli(),
	}
	if cfg, ok := s.loadPreferences(); ok {
		st.Config = cfg
	}
	return st
}

func (s *Store) loadPreferences() (WorkflowConfig, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	raw, err := s.kv.Get(ctx, PreferencesKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn("load preferences", "err", err)
		}
		return WorkflowConfig{}, false
	}
	var cfg WorkflowConfig
	if err := json.Unmarshal(raw, &cfg); err != nil || len(cfg.Enabled()) == 0 {
		s.log.Warn("ignoring malformed preferences", "err", err)
		return WorkflowConfig{}, false
	}
	return cfg, true
}

// State returns a deep copy of the active run.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s *Store) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ID
}

// Persist writes the active run under its id. Failures are logged and
// returned; callers treat them as non-fatal.
func (s *Store) Persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	s.state.Completed = false
	raw, err := json.Marshal(s.state)
	if err != nil {
		s.log.Error("encode workflow state", "run", s.state.ID, "err", err)
		return fmt.Errorf("encode workflow state: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.kv.Put(ctx, s.state.ID, raw); err != nil {
		s.log.Error("persist workflow state", "run", s.state.ID, "err", err)
		return fmt.Errorf("persist workflow state: %w", err)
	}
	return nil
}

// Runs returns every decodable persisted run, newest first.
func (s *Store) Runs(ctx context.Context) ([]State, error) {
	keys, err := s.kv.Keys(ctx, RunKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	runs := make([]State, 0, len(keys))
	for _, key := range keys {
		raw, err := s.kv.Get(ctx, key)
		if err != nil {
			s.log.Warn("skip unreadable run", "key", key, "err", err)
			continue
		}
		var st State
		if err := json.Unmarshal(raw, &st); err != nil || st.ID == "" {
			s.log.Warn("skip malformed run", "key", key, "err", err)
			continue
		}
		runs = append(runs, st)
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp > runs[j].Timestamp })
	return runs, nil
}

// Restore resumes the most recent incomplete run. When none exists a new run
// is started. It reports whether a run was resumed.
func (s *Store) Restore(ctx context.Context) bool {
	runs, err := s.Runs(ctx)
	if err != nil {
		s.log.Warn("restore workflow", "err", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range runs {
		if st.Completed {
			continue
		}
		s.state = normalizeRestored(st)
		s.log.Debug("resumed workflow", "run", st.ID, "steps", len(st.Steps))
		s.persistLocked()
		return true
	}

	s.state = s.freshState()
	s.persistLocked()
	return false
}

func normalizeRestored(st State) State {
	if st.Version == 0 {
		st.Version = SchemaVersion
	}
	if st.Steps == nil {
		st.Steps = []Step{}
	}
	if st.Config.Platforms == nil {
		st.Config.Platforms = map[Platform]bool{}
	}
	for i := range st.Steps {
		if st.Steps[i].Status == StepRunning {
			st.Steps[i].Status = StepError
			st.Steps[i].Error = interruptedMessage
		}
	}
	return st
}

// Reset abandons the active run without archiving it and starts a new one.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.freshState()
	s.persistLocked()
}

// Archive marks the active run completed in storage and starts a new one.
func (s *Store) Archive(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	archived := s.state.clone()
	if raw, err := s.kv.Get(ctx, archived.ID); err == nil {
		var stored State
		if err := json.Unmarshal(raw, &stored); err == nil {
			archived = stored
		} else {
			s.log.Warn("archive: stored run malformed, using in-memory state", "run", archived.ID, "err", err)
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		s.log.Warn("archive: load stored run", "run", archived.ID, "err", err)
	}

	archived.Completed = true
	raw, err := json.Marshal(archived)
	if err != nil {
		return fmt.Errorf("encode archived run: %w", err)
	}
	if err := s.kv.Put(ctx, archived.ID, raw); err != nil {
		return fmt.Errorf("archive run %s: %w", archived.ID, err)
	}
	s.log.Info("archived workflow", "run", archived.ID)

	s.state = s.freshState()
	s.persistLocked()
	return nil
}

// SetConfig stores a new platform selection and regenerates the step list
// from scratch. Progress on the previous list is discarded.
func (s *Store) SetConfig(cfg WorkflowConfig) error {
	steps, err := Resolve(cfg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Config = cfg.clone()
	s.state.Steps = steps
	s.state.CurrentStepIndex = 0
	s.state.ProgressPercent = 0
	s.savePreferencesLocked()
	s.persistLocked()
	return nil
}

// TogglePlatform flips one platform. Disabling the last enabled platform is
// refused.
func (s *Store) TogglePlatform(p Platform) error {
	if !p.Valid() {
		return fmt.Errorf("unknown platform %q", p)
	}
	cfg := s.State().Config
	if cfg.Platforms == nil {
		cfg.Platforms = map[Platform]bool{}
	}
	cfg.Platforms[p] = !cfg.Platforms[p]
	return s.SetConfig(cfg)
}

func (s *Store) savePreferencesLocked() {
	raw, err := json.Marshal(s.state.Config)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.kv.Put(ctx, PreferencesKey, raw); err != nil {
		s.log.Warn("save preferences", "err", err)
	}
}

// EnsureSteps resolves the step list from the current config when it is
// empty, as it is for a freshly started run.
func (s *Store) EnsureSteps() error {
	st := s.State()
	if len(st.Steps) > 0 {
		return nil
	}
	return s.SetConfig(st.Config)
}

func (s *Store) indexLocked(id StepID) int {
	for i, st := range s.state.Steps {
		if st.ID == id {
			return i
		}
	}
	return -1
}

// ReplaceStep swaps the step with the same id in place.
func (s *Store) ReplaceStep(step Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(step.ID)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrStepNotFound, step.ID)
	}
	step.Response = append(json.RawMessage(nil), step.Response...)
	s.state.Steps[i] = step
	s.recomputeProgressLocked()
	s.persistLocked()
	return nil
}

// Begin moves a step to running. It refuses a step that is already running.
func (s *Store) Begin(id StepID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrStepNotFound, id)
	}
	if s.state.Steps[i].Status == StepRunning {
		return fmt.Errorf("%w: %q", ErrStepRunning, id)
	}
	s.state.Steps[i].Status = StepRunning
	s.state.Steps[i].Error = ""
	s.state.CurrentStepIndex = i
	s.persistLocked()
	return nil
}

// Apply records the outcome of one execution attempt.
func (s *Store) Apply(res StepResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(res.ID)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrStepNotFound, res.ID)
	}
	step := &s.state.Steps[i]
	if step.Status != StepRunning {
		return fmt.Errorf("%w: %q is %s", ErrNotRunning, res.ID, step.Status)
	}

	switch res.Status {
	case StepCompleted:
		step.Status = StepCompleted
		step.Response = append(json.RawMessage(nil), res.Response...)
		step.Error = ""
		res.Patch.apply(&s.state.Data)
	case StepError:
		step.Status = StepError
		step.Error = res.Error
		if step.Error == "" {
			step.Error = "step failed"
		}
	default:
		return fmt.Errorf("apply %q: unexpected result status %q", res.ID, res.Status)
	}
	s.state.CurrentStepIndex = i
	s.recomputeProgressLocked()
	s.persistLocked()
	return nil
}

func (s *Store) recomputeProgressLocked() {
	total := len(s.state.Steps)
	if total == 0 {
		s.state.ProgressPercent = 0
		return
	}
	done := 0
	for _, st := range s.state.Steps {
		if st.Status == StepCompleted {
			done++
		}
	}
	s.state.ProgressPercent = done * 100 / total
}
