package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// LogFile is a discovered capture log.
type LogFile struct {
	Path      string
	SessionID string
}

// Discover returns the existing *.ndjson capture logs under baseDir,
// recursively. A missing directory yields an empty result.
func Discover(baseDir string) ([]LogFile, error) {
	var files []LogFile
	err := filepath.WalkDir(baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".ndjson") {
			return nil
		}
		files = append(files, LogFile{Path: path, SessionID: sessionIDFromPath(path)})
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return files, err
	}
	return files, nil
}

// WatchForNew monitors baseDir for newly created or freshly written
// *.ndjson capture logs, sending each on found. New subdirectories are
// picked up as the capture layer rotates per-session directories. Blocks
// until ctx is cancelled.
func WatchForNew(ctx context.Context, baseDir string, found chan<- LogFile) error {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	_ = addDirRecursive(watcher, baseDir)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = addDirRecursive(watcher, ev.Name)
				}
			}

			if (ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write)) &&
				strings.HasSuffix(ev.Name, ".ndjson") {
				lf := LogFile{Path: ev.Name, SessionID: sessionIDFromPath(ev.Name)}
				select {
				case found <- lf:
				case <-ctx.Done():
					return nil
				}
			}

		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
		}
	}
}

// sessionIDFromPath derives a session identifier from a log path:
// the parent directory plus the file stem.
func sessionIDFromPath(path string) string {
	dir := filepath.Base(filepath.Dir(path))
	stem := strings.TrimSuffix(filepath.Base(path), ".ndjson")
	return dir + "/" + stem
}

// addDirRecursive adds dir and all subdirectories to the watcher.
func addDirRecursive(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			_ = w.Add(path)
		}
		return nil
	})
}
