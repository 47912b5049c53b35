package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/aleister1102/secwatch/internal/fixer"
	"github.com/aleister1102/secwatch/internal/models"
	"github.com/aleister1102/secwatch/internal/scanner"
	"github.com/rs/zerolog"
)

// Broadcaster delivers a message to every connected client.
type Broadcaster interface {
	Broadcast(msgType models.MessageType, payload any) error
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	WatchDir    string
	Debounce    time.Duration
	MaxFileSize int64
	IgnoreDirs  []string
	InitialScan bool
}

// Service ties the watcher, change pipeline, scan engine, fix applier and
// client hub together.
type Service struct {
	logger   zerolog.Logger
	engine   *scanner.Engine
	applier  *fixer.Applier
	hub      Broadcaster
	pipeline *Pipeline
	watcher  *Watcher

	unsubscribe func()

	// Paths whose last scan had alerts; a clean rescan of one is still reported
	// so clients can drop its stale alerts.
	flaggedMu sync.Mutex
	flagged   map[string]bool
}

// NewService creates a new Service.
func NewService(
	logger zerolog.Logger,
	engine *scanner.Engine,
	applier *fixer.Applier,
	hub Broadcaster,
	opts ServiceOptions,
) (*Service, error) {
	s := &Service{
		logger:  logger.With().Str("component", "SecwatchService").Logger(),
		engine:  engine,
		applier: applier,
		hub:     hub,
		flagged: make(map[string]bool),
	}

	s.pipeline = NewPipeline(logger, PipelineOptions{
		Debounce:    opts.Debounce,
		MaxFileSize: opts.MaxFileSize,
	})

	watcher, err := NewWatcher(logger, s.pipeline, WatcherOptions{
		Root:        opts.WatchDir,
		IgnoreDirs:  opts.IgnoreDirs,
		InitialScan: opts.InitialScan,
	})
	if err != nil {
		return nil, err
	}
	s.watcher = watcher
	s.unsubscribe = s.pipeline.Subscribe(s.HandleEvent)

	return s, nil
}

// WatchDir returns the absolute directory being watched.
func (s *Service) WatchDir() string {
	return s.watcher.Root()
}

// Start begins watching and scanning.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info().Str("watch_dir", s.WatchDir()).Msg("Starting secwatch service")

	if err := s.pipeline.Start(ctx); err != nil {
		return err
	}
	if err := s.watcher.Start(ctx); err != nil {
		s.pipeline.Stop()
		return err
	}
	return nil
}

// Stop stops watching; pending changes are discarded.
func (s *Service) Stop() {
	s.logger.Info().Msg("Stopping secwatch service")
	if err := s.watcher.Stop(); err != nil {
		s.logger.Warn().Err(err).Msg("Error closing filesystem watcher")
	}
	s.pipeline.Stop()
	s.unsubscribe()
}

// HandleEvent scans a settled change and reports the outcome to clients.
func (s *Service) HandleEvent(event models.FileEvent) {
	if event.Kind == models.ChangeRemoved {
		s.setFlagged(event.Path, false)
		s.broadcast(models.MessageFileRemoved, models.FileRemoved{FilePath: event.Path})
		return
	}

	result := s.engine.Scan(event.Content, event.Path)
	wasFlagged := s.setFlagged(event.Path, result.HasAlerts())
	if !result.HasAlerts() && !wasFlagged {
		return
	}

	s.logger.Info().
		Str("path", event.Path).
		Int("alerts", len(result.Alerts)).
		Str("highest_severity", string(result.HighestSeverity())).
		Msg("Scan result")
	s.broadcast(models.MessageScanResult, result)
}

// HandleFixApply applies a fix. Failures are reported in the response.
func (s *Service) HandleFixApply(ctx context.Context, payload models.FixPayload) models.FixResponse {
	resp, _ := s.applier.ApplyFix(ctx, payload)
	return resp
}

// HandleFixValidate checks a fix and previews it without writing.
func (s *Service) HandleFixValidate(ctx context.Context, payload models.FixPayload) (*models.FixPreview, error) {
	return s.applier.ValidateFix(ctx, payload)
}

func (s *Service) setFlagged(path string, flagged bool) (was bool) {
	s.flaggedMu.Lock()
	defer s.flaggedMu.Unlock()
	was = s.flagged[path]
	if flagged {
		s.flagged[path] = true
	} else {
		delete(s.flagged, path)
	}
	return was
}

func (s *Service) broadcast(msgType models.MessageType, payload any) {
	if err := s.hub.Broadcast(msgType, payload); err != nil {
		s.logger.Error().Err(err).Str("type", string(msgType)).Msg("Failed to broadcast message")
	}
}
