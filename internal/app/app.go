// Package app owns the process-wide binjuice instance.
//
// Init loads the configuration and every configured sound, opens the output
// device and only then publishes the instance. The host entry points
// (AnalysisComplete, DocumentClosed) consult the published instance and do
// nothing while there is none.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gopxl/beep/v2"

	"github.com/jmylchreest/binjuice/internal/audio"
	"github.com/jmylchreest/binjuice/internal/config"
	"github.com/jmylchreest/binjuice/internal/dispatch"
	"github.com/jmylchreest/binjuice/internal/event"
	"github.com/jmylchreest/binjuice/internal/metrics"
	"github.com/jmylchreest/binjuice/internal/registry"
)

// ErrAlreadyInitialized is wrapped in the StartupError Init returns while an
// instance is live.
var ErrAlreadyInitialized = errors.New("binjuice is already initialized")

// Startup stages reported in StartupError.
const (
	StageInit   = "init"
	StageConfig = "config"
	StageSounds = "sounds"
	StageHost   = "host"
	StageOutput = "output"
)

// StartupError reports the stage at which Init gave up.
type StartupError struct {
	Stage string
	Err   error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("startup failed at %s: %v", e.Stage, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

// Options configures Init.
type Options struct {
	// ConfigPath is the config file to load. Empty means config.ConfigPath().
	ConfigPath string

	// Host receives subscription requests. Required.
	Host dispatch.Host

	// OpenOutput opens the audio device. Nil opens the system speaker.
	OpenOutput func(cfg *config.Config) (audio.Output, error)

	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// App is one fully initialized binjuice instance.
type App struct {
	cfg        *config.Config
	table      *audio.Table
	output     audio.Output
	player     *audio.Player
	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
}

var (
	// lifecycleMu serializes Init and Shutdown.
	lifecycleMu sync.Mutex
	current     atomic.Pointer[App]
)

// Init builds and publishes the process instance, then plays the
// start_binary_ninja sound. Nothing is published when any stage fails.
func Init(ctx context.Context, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	lifecycleMu.Lock()
	defer lifecycleMu.Unlock()

	if current.Load() != nil {
		logger.Error("initialization requested twice")
		return nil, &StartupError{Stage: StageInit, Err: ErrAlreadyInitialized}
	}

	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, &StartupError{Stage: StageConfig, Err: err}
	}

	paths, err := cfg.SoundPaths()
	if err != nil {
		return nil, &StartupError{Stage: StageConfig, Err: err}
	}
	table, err := audio.Load(paths)
	if err != nil {
		return nil, &StartupError{Stage: StageSounds, Err: err}
	}
	logger.Debug("sounds loaded", "count", table.Len(), "mask", table.Mask())

	if opts.Host == nil {
		return nil, &StartupError{Stage: StageHost, Err: errors.New("no host to subscribe with")}
	}

	if err := ctx.Err(); err != nil {
		return nil, &StartupError{Stage: StageOutput, Err: err}
	}
	openOutput := opts.OpenOutput
	if openOutput == nil {
		openOutput = OpenSpeaker
	}
	out, err := openOutput(cfg)
	if err != nil {
		return nil, &StartupError{Stage: StageOutput, Err: err}
	}

	player := audio.NewPlayer(out, float64(cfg.Audio.Volume)/100, opts.Metrics, logger)
	reg := registry.New(logger)
	a := &App{
		cfg:      cfg,
		table:    table,
		output:   out,
		player:   player,
		registry: reg,
		dispatcher: dispatch.New(table, player, reg, opts.Host, dispatch.Options{
			MinInterval: cfg.Audio.MinInterval.Duration(),
			Metrics:     opts.Metrics,
			Logger:      logger,
		}),
		logger: logger,
	}

	current.Store(a)
	logger.Info("binjuice initialized", "sounds", table.Len(), "events", a.dispatcher.Mask().Len())

	a.dispatcher.Play(event.StartBinaryNinja)
	return a, nil
}

// OpenSpeaker opens the system speaker with the configured rate and buffer.
func OpenSpeaker(cfg *config.Config) (audio.Output, error) {
	spk, err := audio.OpenSpeaker(beep.SampleRate(cfg.Audio.SampleRate), cfg.Audio.Buffer.Duration())
	if err != nil {
		return nil, err
	}
	return spk, nil
}

// Current returns the published instance, or nil.
func Current() *App {
	return current.Load()
}

// AnalysisComplete is the host's "initial analysis complete" entry point.
func AnalysisComplete(doc registry.DocumentID) {
	a := current.Load()
	if a == nil {
		slog.Debug("analysis complete before initialization", "document", doc)
		return
	}
	a.dispatcher.Attach(doc)
}

// DocumentClosed is the host's document-closed entry point.
func DocumentClosed(doc registry.DocumentID) {
	a := current.Load()
	if a == nil {
		slog.Debug("document closed before initialization", "document", doc)
		return
	}
	a.dispatcher.Detach(doc)
}

// Entrypoints forwards host signals to the package entry points, for callers
// that take them as an interface.
type Entrypoints struct{}

func (Entrypoints) AnalysisComplete(doc registry.DocumentID) { AnalysisComplete(doc) }
func (Entrypoints) DocumentClosed(doc registry.DocumentID)   { DocumentClosed(doc) }

// Shutdown plays the end_binary_ninja sound, waiting for it until ctx is
// done, then releases every subscription and the output device. A later Init
// may publish a new instance.
func Shutdown(ctx context.Context) error {
	lifecycleMu.Lock()
	defer lifecycleMu.Unlock()

	a := current.Swap(nil)
	if a == nil {
		return nil
	}

	if res, ok := a.table.Get(event.EndBinaryNinja); ok {
		if err := a.player.PlayAndWait(ctx, res); err != nil {
			a.logger.Warn("shutdown sound did not finish", "error", err)
		}
	}

	var errs []error
	if err := a.registry.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close subscriptions: %w", err))
	}
	if err := a.output.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close output: %w", err))
	}

	a.logger.Info("binjuice shut down")
	return errors.Join(errs...)
}

// Config returns the configuration the instance was built from.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Sounds returns the loaded sound table.
func (a *App) Sounds() *audio.Table {
	return a.table
}

// Dispatcher returns the host callback surface.
func (a *App) Dispatcher() *dispatch.Dispatcher {
	return a.dispatcher
}

// Registry returns the attached-document registry.
func (a *App) Registry() *registry.Registry {
	return a.registry
}
