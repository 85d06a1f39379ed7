// Package configwatcher re-tunes a live session when its TOML config file
// changes. Only the tunables a running session accepts are applied: liveness
// threshold, retry delay and max attempts.
package configwatcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cardlink/cardlink/internal/cliconfig"
	"github.com/cardlink/cardlink/pkg/log"
	"github.com/cardlink/cardlink/pkg/session"
)

// Retuner accepts new tunables. *session.Session satisfies it.
type Retuner interface {
	Retune(t session.Tuning)
}

// LoadFunc reads the tunables from the file at path.
type LoadFunc func(path string) (session.Tuning, error)

// Plugin watches one config file.
type Plugin struct {
	mu sync.Mutex

	path          string
	debounceDelay time.Duration
	load          LoadFunc

	target   Retuner
	logger   log.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the config file to watch.
	Path string

	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// Changed lists flags set on the command line; the file never overrides them.
	Changed map[string]bool

	// Load overrides how the file is read. Default: FileLoader(Changed).
	Load LoadFunc
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(path string) Config {
	return Config{
		Path:          path,
		DebounceDelay: 100 * time.Millisecond,
	}
}

// FileLoader reads tunables with cliconfig, skipping keys whose flag is in changed.
func FileLoader(changed map[string]bool) LoadFunc {
	return func(path string) (session.Tuning, error) {
		fc, err := cliconfig.LoadFileConfig(path)
		if err != nil {
			return session.Tuning{}, err
		}
		var cfg cliconfig.Config
		if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
			return session.Tuning{}, err
		}
		return cfg.Tuning(), nil
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	if cfg.Load == nil {
		cfg.Load = FileLoader(cfg.Changed)
	}

	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
		load:          cfg.Load,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Start begins watching and applies every change to target.
func (p *Plugin) Start(ctx context.Context, target Retuner, logger log.Logger) error {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	if p.path == "" {
		logger.Warn("config watcher disabled: no config file")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory: editors often replace the file instead of writing it.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(p.path), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.target = target
	p.logger = logger.With(log.String("plugin", p.Name()), log.String("path", p.path))
	p.cancel = cancel
	p.mu.Unlock()

	p.logger.Info("config watcher started")

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	return nil
}

// Shutdown stops the config watcher.
func (p *Plugin) Shutdown() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// watchLoop watches for config file changes.
func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}

	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.reload()
	})
}

func (p *Plugin) reload() {
	t, err := p.load(p.path)
	if err != nil {
		// A half-written file fails to parse; the next write event retries.
		p.logger.Warn("config reload failed", log.Err(err))
		return
	}
	p.target.Retune(t)
	p.logger.Info("config reloaded",
		log.Duration("liveness_threshold", t.LivenessThreshold),
		log.Duration("retry_delay", t.RetryDelay),
		log.Int("max_attempts", t.MaxAttempts),
	)
}
