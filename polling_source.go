package watchdog

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
)

// pollingSource detects changes by diffing stat snapshots of the watched
// tree, one scan per poll window. It is the fallback for filesystems that
// native notification cannot cover, such as network mounts.
type pollingSource struct {
	watch ObservedWatch
	prev  map[string]fileMeta
}

type fileMeta struct {
	modTime time.Time
	size    int64
	isDir   bool
}

// NewPollingSource is a SourceFactory backed by stat polling.
func NewPollingSource(watch ObservedWatch) (EventSource, error) {
	s := &pollingSource{watch: watch}
	snapshot, err := s.scan()
	if err != nil {
		return nil, fmt.Errorf("failed to take initial snapshot of %s: %w", watch.Path, err)
	}
	s.prev = snapshot
	return s, nil
}

// Poll waits out the poll window, rescans, and reports the differences
// against the previous snapshot.
func (s *pollingSource) Poll(ctx context.Context, timeout time.Duration) ([]Event, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		return nil, nil
	}

	snapshot, err := s.scan()
	if err != nil {
		// The watched root itself is gone or unreadable.
		return nil, fmt.Errorf("failed to rescan %s: %w", s.watch.Path, err)
	}

	events := diffSnapshots(s.prev, snapshot)
	s.prev = snapshot
	return events, nil
}

// scan stats the watched tree. Individual entries disappearing mid-scan are
// skipped; only a missing or unreadable root is an error.
func (s *pollingSource) scan() (map[string]fileMeta, error) {
	if _, err := os.Stat(s.watch.Path); err != nil {
		return nil, err
	}

	snapshot := make(map[string]fileMeta)
	if !s.watch.Recursive {
		entries, err := os.ReadDir(s.watch.Path)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			info, err := entry.Info()
			if err != nil {
				continue
			}
			path := s.watch.Path + string(os.PathSeparator) + entry.Name()
			snapshot[path] = fileMeta{modTime: info.ModTime(), size: info.Size(), isDir: info.IsDir()}
		}
		return snapshot, nil
	}

	// fastwalk runs the callback concurrently.
	var mu sync.Mutex
	conf := &fastwalk.Config{Follow: false}
	err := fastwalk.Walk(conf, s.watch.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil || path == s.watch.Path {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		mu.Lock()
		snapshot[path] = fileMeta{modTime: info.ModTime(), size: info.Size(), isDir: d.IsDir()}
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// diffSnapshots turns two snapshots into Create/Write/Remove events, in a
// stable path order so repeated runs dispatch deterministically.
func diffSnapshots(prev, curr map[string]fileMeta) []Event {
	var events []Event
	paths := make([]string, 0, len(curr))
	for path := range curr {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		meta := curr[path]
		old, existed := prev[path]
		switch {
		case !existed:
			events = append(events, Event{Op: Create, Path: path, IsDir: meta.isDir})
		case !old.isDir && (!old.modTime.Equal(meta.modTime) || old.size != meta.size):
			events = append(events, Event{Op: Write, Path: path, IsDir: meta.isDir})
		}
	}

	removed := make([]string, 0)
	for path := range prev {
		if _, ok := curr[path]; !ok {
			removed = append(removed, path)
		}
	}
	sort.Strings(removed)
	for _, path := range removed {
		events = append(events, Event{Op: Remove, Path: path, IsDir: prev[path].isDir})
	}
	return events
}

// Close is a no-op; polling holds no OS resources between scans.
func (s *pollingSource) Close() error {
	return nil
}
