package mount

import (
	"context"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports media changes under the OS mount points: a mount root that
// appears or disappears (card inserted or removed) and changes inside a root.
type Watcher struct {
	w      *fsnotify.Watcher
	roots  map[string]bool
	logger *log.Logger

	// OnEvent, when set, is called for every event after it has been logged.
	OnEvent func(fsnotify.Event)
}

// NewWatcher watches each dir and its parent directory. Missing dirs are
// still tracked through their parent so a later insertion is noticed.
func NewWatcher(dirs []string, logger *log.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{w: fw, roots: make(map[string]bool), logger: logger}
	for _, d := range dirs {
		root := filepath.Clean(d)
		w.roots[root] = true
		if err := fw.Add(filepath.Dir(root)); err != nil && logger != nil {
			logger.Printf("watch parent of %q: %v", root, err)
		}
		if err := fw.Add(root); err != nil && logger != nil {
			logger.Printf("mount point %q not available: %v", root, err)
		}
	}
	return w, nil
}

// Run processes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Printf("watch error: %v", err)
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	name := filepath.Clean(ev.Name)
	switch {
	case w.roots[name] && ev.Has(fsnotify.Create):
		if err := w.w.Add(name); err != nil && w.logger != nil {
			w.logger.Printf("mount point %q appeared but cannot be watched: %v", name, err)
		} else if w.logger != nil {
			w.logger.Printf("mount point %q available", name)
		}
	case w.roots[name] && (ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)):
		if w.logger != nil {
			w.logger.Printf("mount point %q removed", name)
		}
	case w.roots[filepath.Dir(name)]:
		if w.logger != nil {
			w.logger.Printf("%s %s", ev.Op, name)
		}
	default:
		// sibling of a mount root inside the watched parent
		return
	}
	if w.OnEvent != nil {
		w.OnEvent(ev)
	}
}

func (w *Watcher) Close() error {
	return w.w.Close()
}
