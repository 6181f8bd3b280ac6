package huntconfig

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the configuration file whenever it changes on disk:
// an fsnotify.Watcher plus an Events channel, a done channel and a
// processEvents goroutine, narrowed to one file and one outcome (a
// freshly loaded Config) instead of a stream of per-file events. Each
// reload calls Load, which reads the file named by HUNTMOVER_CONFIG or
// the default path, not the watched path itself.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	log     *slog.Logger

	Updates chan *Config
	done    chan struct{}
}

// NewWatcher creates a watcher for the config file at path.
func NewWatcher(path string, log *slog.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher: w,
		path:    path,
		log:     log,
		Updates: make(chan *Config, 1),
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching the config file's directory and reloading on
// write/create events targeting it.
func (w *Watcher) Start() error {
	expanded, err := expandUser(w.path)
	if err != nil {
		return err
	}
	w.path = expanded
	dir, err := dirOf(w.path)
	if err != nil {
		return err
	}
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	go w.processEvents()
	return nil
}

// Stop shuts the watcher down.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) processEvents() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load()
			if err != nil {
				if w.log != nil {
					w.log.Warn("config reload failed", "path", w.path, "error", err)
				}
				continue
			}
			select {
			case w.Updates <- cfg:
			default:
				if w.log != nil {
					w.log.Warn("config update buffer full, dropping reload")
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.log != nil {
				w.log.Warn("config watcher error", "error", err)
			}

		case <-w.done:
			return
		}
	}
}

func dirOf(path string) (string, error) {
	expanded, err := expandUser(path)
	if err != nil {
		return "", err
	}
	for i := len(expanded) - 1; i >= 0; i-- {
		if expanded[i] == '/' {
			return expanded[:i], nil
		}
	}
	return ".", nil
}
