package config

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 200 * time.Millisecond

// SiteSource holds the active site configuration and swaps it on reload.
type SiteSource struct {
	path    string
	current atomic.Pointer[Site]
	log     *zap.Logger
}

func NewSiteSource(path string, log *zap.Logger) (*SiteSource, error) {
	site, err := LoadSite(path)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &SiteSource{path: path, log: log}
	s.current.Store(site)
	return s, nil
}

func (s *SiteSource) Current() *Site {
	return s.current.Load()
}

// Reload re-reads the file. On failure the previous config stays active.
func (s *SiteSource) Reload() error {
	site, err := LoadSite(s.path)
	if err != nil {
		s.log.Warn("site config reload rejected, keeping previous", zap.String("path", s.path), zap.Error(err))
		return err
	}
	s.current.Store(site)
	s.log.Info("site config reloaded", zap.String("path", s.path))
	return nil
}

// Watch reloads the site file whenever it changes until ctx is done. The
// parent directory is watched so editors that replace the file are seen.
func (s *SiteSource) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(s.path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			_ = s.Reload()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("site config watcher error", zap.Error(err))
		}
	}
}
