package watchdog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// fsnotifySource adapts fsnotify to the EventSource boundary. fsnotify
// watches are non-recursive, so recursive mode registers the whole tree up
// front and self-extends whenever a new directory shows up.
type fsnotifySource struct {
	watch   ObservedWatch
	watcher *fsnotify.Watcher
}

// NewFSNotifySource is a SourceFactory backed by the platform's native
// notification mechanism (inotify, kqueue, FSEvents, ReadDirectoryChangesW).
func NewFSNotifySource(watch ObservedWatch) (EventSource, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if err := watcher.Add(watch.Path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", watch.Path, err)
	}

	s := &fsnotifySource{watch: watch, watcher: watcher}
	if watch.Recursive {
		if err := s.addTree(watch.Path); err != nil {
			watcher.Close()
			return nil, err
		}
	}
	return s, nil
}

// addTree registers watches for every directory below root.
func (s *fsnotifySource) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Entries vanishing mid-walk are expected on a live tree.
			return nil
		}
		if !d.IsDir() || path == root {
			return nil
		}
		if err := s.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// Poll waits up to timeout for the first buffered notification, then
// returns it together with everything else already buffered.
func (s *fsnotifySource) Poll(ctx context.Context, timeout time.Duration) ([]Event, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var events []Event

	select {
	case raw, ok := <-s.watcher.Events:
		if !ok {
			return nil, errors.New("fsnotify watcher closed")
		}
		if e, ok := s.translate(raw); ok {
			events = append(events, e)
		}
	case err, ok := <-s.watcher.Errors:
		if !ok {
			return nil, errors.New("fsnotify watcher closed")
		}
		if fatal := s.classify(err); fatal != nil {
			return nil, fatal
		}
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, nil
	}

	for {
		select {
		case raw, ok := <-s.watcher.Events:
			if !ok {
				return events, nil
			}
			if e, ok := s.translate(raw); ok {
				events = append(events, e)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return events, nil
			}
			if fatal := s.classify(err); fatal != nil {
				return events, fatal
			}
		default:
			return events, nil
		}
	}
}

// classify separates transient notification errors from fatal ones.
// Kernel buffer overflows mean events were lost, not that the watch died.
func (s *fsnotifySource) classify(err error) error {
	if errors.Is(err, fsnotify.ErrEventOverflow) {
		return nil
	}
	return fmt.Errorf("fsnotify error on %s: %w", s.watch.Path, err)
}

func (s *fsnotifySource) translate(raw fsnotify.Event) (Event, bool) {
	var op Op
	switch {
	case raw.Has(fsnotify.Create):
		op = Create
	case raw.Has(fsnotify.Write):
		op = Write
	case raw.Has(fsnotify.Remove):
		op = Remove
	case raw.Has(fsnotify.Rename):
		op = Rename
	case raw.Has(fsnotify.Chmod):
		op = Chmod
	default:
		return Event{}, false
	}

	isDir := false
	if info, err := os.Stat(raw.Name); err == nil {
		isDir = info.IsDir()
	}

	if op == Create && isDir && s.watch.Recursive {
		// Extend the watch to the new directory and anything created
		// inside it before the watch was in place.
		_ = s.watcher.Add(raw.Name)
		_ = s.addTree(raw.Name)
	}

	return Event{Op: op, Path: raw.Name, IsDir: isDir}, true
}

// Close releases the underlying fsnotify watcher.
func (s *fsnotifySource) Close() error {
	return s.watcher.Close()
}
