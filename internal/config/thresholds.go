package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// SLAThresholds is the hot-reloadable part of the escalation configuration.
type SLAThresholds struct {
	AlertThresholdPercent float64
}

type thresholdsFile struct {
	AlertThresholdPercent *float64 `yaml:"alert_threshold_percent"`
}

// ParseThresholds decodes and validates a YAML threshold document.
func ParseThresholds(content []byte) (SLAThresholds, error) {
	var raw thresholdsFile
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return SLAThresholds{}, fmt.Errorf("decode sla thresholds: %w", err)
	}
	if raw.AlertThresholdPercent == nil {
		return SLAThresholds{}, errors.New("alert_threshold_percent is required")
	}
	alert := *raw.AlertThresholdPercent
	if alert <= 0 || alert > 100 {
		return SLAThresholds{}, fmt.Errorf("alert_threshold_percent must be in (0, 100], got %v", alert)
	}
	return SLAThresholds{AlertThresholdPercent: alert}, nil
}

// ThresholdProvider serves the last successfully loaded thresholds and
// refreshes them when the backing file changes.
type ThresholdProvider struct {
	path    string
	logger  *zap.Logger
	current atomic.Pointer[SLAThresholds]
}

// NewThresholdProvider performs the initial load. A failure here is fatal for the caller.
func NewThresholdProvider(path string, logger *zap.Logger) (*ThresholdProvider, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve sla config path: %w", err)
	}
	p := &ThresholdProvider{path: abs, logger: logger}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Current returns the live thresholds without blocking.
func (p *ThresholdProvider) Current() SLAThresholds {
	return *p.current.Load()
}

// Reload re-reads the file. On error the previous thresholds stay in place.
func (p *ThresholdProvider) Reload() error {
	content, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("read sla config %s: %w", p.path, err)
	}
	thresholds, err := ParseThresholds(content)
	if err != nil {
		return fmt.Errorf("parse sla config %s: %w", p.path, err)
	}
	p.current.Store(&thresholds)
	p.logger.Info("sla thresholds loaded",
		zap.String("path", p.path),
		zap.Float64("alert_threshold_percent", thresholds.AlertThresholdPercent))
	return nil
}

// Watch applies file changes until ctx is cancelled. Filesystem events are
// forwarded over a channel so reloads happen on this goroutine only.
func (p *ThresholdProvider) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create sla config watcher: %w", err)
	}
	// Watch the directory: editors often replace the file instead of writing it in place.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch sla config dir: %w", err)
	}

	changes := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.forwardEvents(ctx, watcher, changes)
	}()
	defer func() {
		_ = watcher.Close()
		<-done
	}()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("sla config watcher stopped")
			return nil
		case <-changes:
			if err := p.Reload(); err != nil {
				p.logger.Error("sla config reload failed, keeping previous thresholds", zap.Error(err))
			}
		}
	}
}

func (p *ThresholdProvider) forwardEvents(ctx context.Context, watcher *fsnotify.Watcher, changes chan<- struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != p.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			select {
			case changes <- struct{}{}:
			default:
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn("sla config watcher error", zap.Error(err))
		}
	}
}
