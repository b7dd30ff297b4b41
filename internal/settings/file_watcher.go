package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Thrusbalda/auto-work-log/internal/model"
)

// fileSettings is the YAML shape of a settings file. Omitted fields keep
// their current value.
type fileSettings struct {
	WorkLocation      *model.Coordinate `yaml:"workLocation"`
	ClearWorkLocation bool              `yaml:"clearWorkLocation"`
	RadiusMeters      *float64          `yaml:"radiusMeters"`
	AutoLog           *bool             `yaml:"autoLog"`
}

// FileWatcher applies a YAML settings file to a Provider at startup and
// whenever the file changes on disk.
type FileWatcher struct {
	path     string
	provider *Provider
	logger   *zap.Logger
}

func NewFileWatcher(path string, provider *Provider, logger *zap.Logger) *FileWatcher {
	return &FileWatcher{path: path, provider: provider, logger: logger}
}

// Apply reads the file and merges it into the current settings.
func (w *FileWatcher) Apply() error {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return fmt.Errorf("read settings file: %w", err)
	}

	var fs fileSettings
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return fmt.Errorf("parse settings file: %w", err)
	}

	next := w.provider.Current()
	if fs.ClearWorkLocation {
		next.WorkLocation = nil
	}
	if fs.WorkLocation != nil {
		loc := *fs.WorkLocation
		next.WorkLocation = &loc
	}
	if fs.RadiusMeters != nil {
		next.RadiusMeters = *fs.RadiusMeters
	}
	if fs.AutoLog != nil {
		next.AutoLog = *fs.AutoLog
	}

	if _, err := w.provider.Update(next); err != nil {
		return fmt.Errorf("apply settings file: %w", err)
	}
	return nil
}

// Run applies the file once and then on every write until ctx is done. The
// parent directory is watched because editors often replace files on save.
func (w *FileWatcher) Run(ctx context.Context) error {
	if err := w.Apply(); err != nil && !errors.Is(err, os.ErrNotExist) {
		w.logger.Warn("settings file not applied", zap.String("path", w.path), zap.Error(err))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create settings watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch settings dir: %w", err)
	}

	target := filepath.Clean(w.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := w.Apply(); err != nil {
				w.logger.Warn("settings file not applied", zap.String("path", w.path), zap.Error(err))
				continue
			}
			w.logger.Info("settings file applied", zap.String("path", w.path))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("settings watcher error", zap.Error(err))
		}
	}
}
