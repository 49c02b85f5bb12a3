package web

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/monokrome/astrogonia/internal/config"
)

const debounceDuration = 500 * time.Millisecond

// watch rebuilds the site when source files change and tells connected
// browsers to reload. It is a no-op when no rebuild function is set.
func (s *Server) watch(ctx context.Context) error {
	if s.rebuild == nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	watched := make(map[string]bool)
	addWatch := func(dir string) {
		dir = filepath.Clean(dir)
		if watched[dir] {
			return
		}
		if err := watcher.Add(dir); err != nil {
			s.logger.Warn("cannot watch directory", "dir", dir, "error", err)
			return
		}
		s.logger.Debug("watching directory", "dir", dir)
		watched[dir] = true
	}

	roots := []string{
		s.cfg.ContentDir,
		s.cfg.LayoutDir,
		s.cfg.TemplateDir,
		s.cfg.StaticDir,
	}
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			continue
		}
		_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() {
				addWatch(path)
			}
			return nil
		})
	}
	// The config file's parent, since editors replace files on save.
	addWatch(filepath.Dir(config.DefaultPath()))

	go func() {
		defer func() { _ = watcher.Close() }()
		s.watchLoop(ctx, watcher, addWatch)
	}()
	return nil
}

func (s *Server) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, addWatch func(string)) {
	var lastBuild time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			// New directories need their own watch.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					addWatch(event.Name)
				}
			}
			if time.Since(lastBuild) <= debounceDuration {
				continue
			}
			// Let the editor finish writing before rebuilding.
			time.Sleep(100 * time.Millisecond)

			s.logger.Info("change detected, rebuilding", "path", event.Name)
			if err := s.rebuild(ctx); err != nil {
				s.logger.Error("rebuild failed", "error", err)
			} else {
				s.logger.Info("rebuild finished, reloading clients")
				s.hub.broadcast([]byte("reload"))
			}
			lastBuild = time.Now()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watcher error", "error", err)
		}
	}
}
