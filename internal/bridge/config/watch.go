package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/chojs23/ts-bridge/internal/terrors"
)

// Watcher pushes a reload signal whenever the resolved config file or a
// workspace tsconfig.json/jsconfig.json changes on disk, so broker.UpdateConfig
// can be driven the same way workspace/didChangeConfiguration does.
type Watcher struct {
	fsw    *fsnotify.Watcher
	Events chan struct{}
	log    *zap.SugaredLogger
}

// NewWatcher watches workspaceRoot's resolved config file (if any) plus
// tsconfig.json/jsconfig.json directly under workspaceRoot.
func NewWatcher(workspaceRoot string, log *zap.SugaredLogger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, terrors.Wrap(err, "create config file watcher")
	}

	w := &Watcher{fsw: fsw, Events: make(chan struct{}, 1), log: log}

	candidates := []string{
		filepath.Join(workspaceRoot, "tsconfig.json"),
		filepath.Join(workspaceRoot, "jsconfig.json"),
	}
	if configPath := findProjectConfig(workspaceRoot); configPath != "" {
		candidates = append(candidates, configPath)
	}

	for _, path := range candidates {
		if err := fsw.Add(path); err != nil {
			log.Debugw("not watching config candidate", "path", path, "error", err)
		}
	}

	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				select {
				case w.Events <- struct{}{}:
				default:
				}
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warnw("config watcher error", "error", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
