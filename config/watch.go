package config

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/go-imppg/imppg/ierr"
)

// ReadFile parses a simple "key = value" text file (blank lines and
// lines starting with '#' ignored) into current via FromMap. No pack
// library models this tiny config-file grammar, so it is hand-parsed
// with bufio/strings rather than adopting an INI library for one
// grammar this small.
func ReadFile(path string, current Config) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return current, ierr.New(ierr.IO, "config.ReadFile", errors.Wrapf(err, "open %q", path))
	}
	defer f.Close()

	vars := map[string]string{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		vars[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	if err := sc.Err(); err != nil {
		return current, ierr.New(ierr.IO, "config.ReadFile", errors.Wrap(err, "scan config file"))
	}

	current.FromMap(vars)
	current.Validate()
	return current, nil
}

// Watch re-reads path into current whenever it changes on disk, pushing
// the merged result on the returned channel (spec's ambient-stack hot
// reload, the same fsnotify pattern as batch.WatchSettings). The channel
// is closed when ctx is cancelled.
func Watch(ctx context.Context, path string, current Config) (<-chan Config, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ierr.New(ierr.IO, "config.Watch", errors.Wrap(err, "create fsnotify watcher"))
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, ierr.New(ierr.IO, "config.Watch", errors.Wrapf(err, "watch %q", dir))
	}

	out := make(chan Config, 1)
	go func() {
		defer watcher.Close()
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(path) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				updated, err := ReadFile(path, current)
				if err != nil {
					current.Logger.Warning("config hot reload failed", "path", path, "error", err)
					continue
				}
				current = updated
				select {
				case out <- current:
				default:
					select {
					case <-out:
					default:
					}
					out <- current
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				current.Logger.Warning("config watcher error", "error", err)
			}
		}
	}()
	return out, nil
}
