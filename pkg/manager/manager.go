package manager

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rnnvis/rnnvis/pkg/modelconfig"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var DebugLog func(string, ...interface{})

var (
	ErrUnknownModel       = errors.New("unknown model")
	ErrDuplicateModel     = errors.New("model already registered")
	ErrRuntimeUnavailable = errors.New("model runtime not available: configs can be inspected but not executed")
)

// DefaultModels are the models every manager knows about, keyed by name,
// valued by config file relative to the config directory.
var DefaultModels = map[string]string{
	"PTB-LSTM":    "lstm.yml",
	"Shakespeare": "shakespeare.yml",
	"IMDB":        "imdb-tiny.yml",
	"PTB-GRU":     "gru.yml",
}

// Recorder is notified after a model config is loaded.
type Recorder interface {
	RecordConfig(name, source string, cfg *modelconfig.Config) error
}

type Manager struct {
	configDir string
	workers   int
	client    *http.Client
	logger    *logrus.Logger
	recorder  Recorder

	mu       sync.Mutex
	registry map[string]string
	entries  map[string]*entry
}

type entry struct {
	once  sync.Once
	ready atomic.Bool
	cfg   *modelconfig.Config
	err   error
}

type Option func(*Manager)

func WithLogger(logger *logrus.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		m.recorder = r
	}
}

func WithWorkers(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.workers = n
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) {
		m.client = client
	}
}

// WithModels adds registry entries on top of DefaultModels. Entries with the
// same name replace the default.
func WithModels(models map[string]string) Option {
	return func(m *Manager) {
		for name, file := range models {
			m.registry[name] = file
		}
	}
}

func New(configDir string, opts ...Option) *Manager {
	m := &Manager{
		configDir: configDir,
		workers:   4,
		registry:  make(map[string]string, len(DefaultModels)),
		entries:   make(map[string]*entry),
	}
	for name, file := range DefaultModels {
		m.registry[name] = file
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.logger == nil {
		m.logger = logrus.New()
	}
	return m
}

func (m *Manager) AvailableModels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.registry))
	for name := range m.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ConfigFilename returns where the config of name is read from: a path under
// the config directory or a URL.
func (m *Manager) ConfigFilename(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locationLocked(name)
}

func (m *Manager) locationLocked(name string) (string, bool) {
	file, ok := m.registry[name]
	if !ok {
		return "", false
	}
	if modelconfig.IsRemote(file) || filepath.IsAbs(file) {
		return file, true
	}
	return filepath.Join(m.configDir, file), true
}

func (m *Manager) Register(name, file string) error {
	if name == "" || file == "" {
		return fmt.Errorf("model name and config file are required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.registry[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateModel, name)
	}
	m.registry[name] = file
	return nil
}

// IsLoaded reports whether a config for name is cached.
func (m *Manager) IsLoaded(name string) bool {
	m.mu.Lock()
	e, ok := m.entries[name]
	m.mu.Unlock()
	return ok && e.ready.Load()
}

// Config returns the validated config of name, loading it on first use.
// Concurrent first calls for the same name share a single load. Failed loads
// are not cached. The result is a copy owned by the caller.
func (m *Manager) Config(ctx context.Context, name string) (*modelconfig.Config, error) {
	m.mu.Lock()
	location, ok := m.locationLocked(name)
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
	e, cached := m.entries[name]
	if !cached {
		e = &entry{}
		m.entries[name] = e
	}
	m.mu.Unlock()

	e.once.Do(func() {
		e.cfg, e.err = m.load(ctx, name, location)
		e.ready.Store(e.err == nil)
	})

	if e.err != nil {
		m.mu.Lock()
		if m.entries[name] == e {
			delete(m.entries, name)
		}
		m.mu.Unlock()
		return nil, e.err
	}

	return e.cfg.Clone(), nil
}

func (m *Manager) load(ctx context.Context, name, location string) (*modelconfig.Config, error) {
	if DebugLog != nil {
		DebugLog("loading model %s from %s", name, location)
	}

	cfg, err := modelconfig.Open(ctx, m.client, location)
	if err != nil {
		m.logger.WithField("model", name).Warnf("failed to load config: %v", err)
		return nil, fmt.Errorf("failed to load model %s: %w", name, err)
	}

	m.logger.WithField("model", name).Debugf("loaded %s (%s, %d layer(s))",
		cfg.Model.Name, cfg.Model.CellType, len(cfg.Model.Cells))

	if m.recorder != nil {
		if err := m.recorder.RecordConfig(name, location, cfg.Clone()); err != nil {
			m.logger.WithField("model", name).Warnf("failed to record config: %v", err)
		}
	}

	return cfg, nil
}

// Reload drops the cached config of name and loads it again.
func (m *Manager) Reload(ctx context.Context, name string) (*modelconfig.Config, error) {
	m.mu.Lock()
	delete(m.entries, name)
	m.mu.Unlock()

	return m.Config(ctx, name)
}

// LoadAll loads every registered model with at most the configured number of
// workers and returns the errors keyed by model name. A cancelled context
// stops models that have not started yet.
func (m *Manager) LoadAll(ctx context.Context) map[string]error {
	names := m.AvailableModels()

	var mu sync.Mutex
	failures := make(map[string]error)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)

	for _, name := range names {
		name := name
		g.Go(func() error {
			var err error
			if cerr := gctx.Err(); cerr != nil {
				err = cerr
			} else {
				_, err = m.Config(gctx, name)
			}
			if err != nil {
				mu.Lock()
				failures[name] = err
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	return failures
}

// Generate would run text generation on a trained model. Only configuration
// is managed here, so known models report ErrRuntimeUnavailable.
func (m *Manager) Generate(ctx context.Context, name string, seeds []string) ([]string, error) {
	if _, err := m.Config(ctx, name); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("generate %s: %w", name, ErrRuntimeUnavailable)
}

// RecordSequence would evaluate sequences and record hidden states.
func (m *Manager) RecordSequence(ctx context.Context, name string, sequences [][]string) error {
	if _, err := m.Config(ctx, name); err != nil {
		return err
	}
	if len(sequences) == 0 {
		return fmt.Errorf("no sequences to record")
	}
	return fmt.Errorf("record %s: %w", name, ErrRuntimeUnavailable)
}
