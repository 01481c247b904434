package overlay

import (
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher evicts overlay entries when their backing file is written on
// disk, modeling "buffer saved" without requiring the editor's save
// notification to be wired through by hand. This is additive to spec.md's
// contract: Evict is still called explicitly by the parser callback on
// buffer close, and a caller that never wires a Watcher loses nothing.
type Watcher struct {
	overlay *DirtyOverlay
	fsw     *fsnotify.Watcher
	log     *zap.Logger
	done    chan struct{}
}

// WatchSaves starts watching the given set of file paths for writes,
// evicting the corresponding overlay entry (keyed by file URI, passed in
// as pathToURI) whenever fsnotify reports a Write event. Call Close to
// stop watching.
func WatchSaves(ov *DirtyOverlay, log *zap.Logger, pathToURI map[string]string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for path := range pathToURI {
		if err := fsw.Add(path); err != nil {
			log.Warn("overlay: failed to watch path", zap.String("path", path), zap.Error(err))
		}
	}

	w := &Watcher{overlay: ov, fsw: fsw, log: log, done: make(chan struct{})}
	go w.loop(pathToURI)
	return w, nil
}

func (w *Watcher) loop(pathToURI map[string]string) {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Write == 0 {
				continue
			}
			if uri, ok := pathToURI[ev.Name]; ok {
				w.overlay.Evict(uri)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("overlay: watch error", zap.Error(err))
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher and releases its underlying file descriptors.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
