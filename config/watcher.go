package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/depthview/depthview/logging"
	rutils "github.com/depthview/depthview/utils"
)

// WatchDebounce is how long a config file must stay unchanged before it is re-read. Editors often
// write a file in several steps.
var WatchDebounce = 250 * time.Millisecond

// A Watcher is responsible for watching for changes
// to a config from some source and delivering those changes
// to some destination.
type Watcher interface {
	// Config delivers each new valid config. Only the latest undelivered config is kept.
	Config() <-chan *Config
	Close(ctx context.Context) error
}

type fsConfigWatcher struct {
	path     string
	fsw      *fsnotify.Watcher
	debounce func(func())
	logger   logging.Logger
	workers  rutils.StoppableWorkers
	configCh chan *Config

	mu     sync.Mutex
	last   *Config
	closed bool
}

// NewWatcher watches the config file at path. The file must exist; its directory is watched so that
// editors replacing the file are noticed.
func NewWatcher(ctx context.Context, path string, logger logging.Logger) (Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, multierr.Combine(err, fsw.Close())
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		return nil, multierr.Combine(errors.Wrapf(err, "cannot watch %q", path), fsw.Close())
	}

	w := &fsConfigWatcher{
		path:     abs,
		fsw:      fsw,
		debounce: debounce.New(WatchDebounce),
		logger:   logger,
		configCh: make(chan *Config, 1),
	}
	if cfg, err := Read(ctx, abs, logger); err == nil {
		w.last = cfg
	} else {
		logger.Warnw("initial config is invalid; waiting for a valid one", "path", path, "error", err)
	}
	w.workers = rutils.NewStoppableWorkers(w.watch)
	return w, nil
}

func (w *fsConfigWatcher) watch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.debounce(func() { w.reload(ctx) })
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("config watch error", "error", err)
		}
	}
}

func (w *fsConfigWatcher) reload(ctx context.Context) {
	cfg, err := Read(ctx, w.path, w.logger)
	if err != nil {
		w.logger.Errorw("error reading changed config", "path", w.path, "error", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.last != nil {
		diff, err := DiffConfigs(*w.last, *cfg, false)
		if err != nil {
			w.logger.Errorw("error diffing config", "error", err)
			return
		}
		changed := diff.Changed()
		if len(changed) == 0 {
			return
		}
		w.logger.Infow("config changed", "path", w.path, "sections", changed)
		w.logger.Debugf("config diff:\n%s", diff)
	}
	w.last = cfg

	select {
	case <-w.configCh:
	default:
	}
	w.configCh <- cfg
}

func (w *fsConfigWatcher) Config() <-chan *Config {
	return w.configCh
}

func (w *fsConfigWatcher) Close(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.workers.Stop()
	return w.fsw.Close()
}
