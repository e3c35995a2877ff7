package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay collapses the event bursts editors produce when they
// save a file.
const debounceDelay = 200 * time.Millisecond

// ProfileWatcher reloads the fault profile whenever the file changes
// on disk. Editors often replace files instead of writing in place,
// so the watcher observes the parent directory and filters events
// down to the profile path.
type ProfileWatcher struct {
	path     string
	base     FaultProfile
	onChange func(FaultProfile)
	log      *slog.Logger
	watcher  *fsnotify.Watcher
}

// NewProfileWatcher starts watching the directory containing path.
// onChange is called with each successfully loaded profile, invalid
// edits are logged and skipped.
func NewProfileWatcher(path string, base FaultProfile, log *slog.Logger, onChange func(FaultProfile)) (*ProfileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}
	return &ProfileWatcher{
		path:     path,
		base:     base,
		onChange: onChange,
		log:      log,
		watcher:  w,
	}, nil
}

// Watch blocks until ctx is done, reloading the profile after each
// burst of filesystem events that touch it.
func (pw *ProfileWatcher) Watch(ctx context.Context) {
	timer := time.NewTimer(debounceDelay)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			if !pw.matches(ev) {
				continue
			}
			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(debounceDelay)
			pending = true
		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			pw.log.Error("profile watcher error", "error", err)
		case <-timer.C:
			pending = false
			pw.reload()
		}
	}
}

func (pw *ProfileWatcher) matches(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != filepath.Clean(pw.path) {
		return false
	}
	return ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename)
}

func (pw *ProfileWatcher) reload() {
	p, err := LoadProfile(pw.path, pw.base)
	if err != nil {
		pw.log.Error("fault profile reload rejected", "path", pw.path, "error", err)
		return
	}
	pw.log.Info("fault profile reloaded", "path", pw.path)
	pw.onChange(p)
}

// Close stops the underlying filesystem watcher.
func (pw *ProfileWatcher) Close() error {
	return pw.watcher.Close()
}
