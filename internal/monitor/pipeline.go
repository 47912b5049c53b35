package monitor

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/aleister1102/secwatch/internal/common"
	"github.com/aleister1102/secwatch/internal/models"
	"github.com/rs/zerolog"
)

const DefaultDebounce = 500 * time.Millisecond

// Listener receives settled file events. Listeners run on the pipeline's
// dispatch goroutine, one event at a time.
type Listener func(models.FileEvent)

// PipelineOptions configures a Pipeline.
type PipelineOptions struct {
	Debounce    time.Duration
	MaxFileSize int64
	FileManager *common.FileManager
}

type pendingEntry struct {
	kind  models.ChangeKind
	gen   uint64
	timer *time.Timer
}

type firedEntry struct {
	kind models.ChangeKind
	path string
}

type subscription struct {
	id       uint64
	listener Listener
}

// Pipeline turns bursts of raw change notifications into one event per path,
// emitted once the path has been quiet for the debounce interval. Added and
// changed events carry the file content read when the timer fires.
type Pipeline struct {
	logger      zerolog.Logger
	debounce    time.Duration
	maxFileSize int64
	fileManager *common.FileManager

	mu      sync.Mutex
	pending map[string]*pendingEntry
	queue   []firedEntry
	nextGen uint64
	started bool
	stopped bool

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup

	listenersMu  sync.RWMutex
	listeners    []subscription
	nextListener uint64
}

// NewPipeline creates a new Pipeline. Call Start to begin delivering events.
func NewPipeline(logger zerolog.Logger, opts PipelineOptions) *Pipeline {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.FileManager == nil {
		opts.FileManager = common.NewFileManager(logger)
	}
	return &Pipeline{
		logger:      logger.With().Str("component", "ChangePipeline").Logger(),
		debounce:    opts.Debounce,
		maxFileSize: opts.MaxFileSize,
		fileManager: opts.FileManager,
		pending:     make(map[string]*pendingEntry),
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
}

// Notify records a raw change for path and restarts its quiet period.
// The most recent kind wins. Calls after Stop are ignored.
func (p *Pipeline) Notify(kind models.ChangeKind, path string) {
	if !kind.IsValid() {
		p.logger.Warn().Str("kind", string(kind)).Str("path", path).Msg("Ignoring notification with unknown kind")
		return
	}
	key := canonicalPath(path)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}
	if existing, ok := p.pending[key]; ok {
		existing.timer.Stop()
	}

	p.nextGen++
	gen := p.nextGen
	entry := &pendingEntry{kind: kind, gen: gen}
	entry.timer = time.AfterFunc(p.debounce, func() { p.fire(key, gen) })
	p.pending[key] = entry
}

// Pending returns how many paths are waiting out their quiet period.
func (p *Pipeline) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Subscribe adds listener and returns a function that removes it.
func (p *Pipeline) Subscribe(listener Listener) func() {
	p.listenersMu.Lock()
	defer p.listenersMu.Unlock()

	p.nextListener++
	id := p.nextListener
	p.listeners = append(p.listeners, subscription{id: id, listener: listener})

	var once sync.Once
	return func() {
		once.Do(func() {
			p.listenersMu.Lock()
			defer p.listenersMu.Unlock()
			for i, sub := range p.listeners {
				if sub.id == id {
					p.listeners = append(p.listeners[:i:i], p.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Start launches the dispatch goroutine. Cancelling ctx has the same effect as Stop.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return errors.New("pipeline already stopped")
	}
	if p.started {
		p.mu.Unlock()
		return errors.New("pipeline already started")
	}
	p.started = true
	p.mu.Unlock()

	p.wg.Add(1)
	go p.dispatch()

	go func() {
		select {
		case <-ctx.Done():
			p.Stop()
		case <-p.done:
		}
	}()

	p.logger.Debug().Dur("debounce", p.debounce).Msg("Change pipeline started")
	return nil
}

// Stop cancels every pending timer, discards queued events and waits for the
// dispatch goroutine to finish the event it is delivering, if any.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	cancelled := len(p.pending)
	for key, entry := range p.pending {
		entry.timer.Stop()
		delete(p.pending, key)
	}
	p.queue = nil
	p.mu.Unlock()

	close(p.done)
	p.wg.Wait()
	p.logger.Debug().Int("cancelled", cancelled).Msg("Change pipeline stopped")
}

func (p *Pipeline) fire(key string, gen uint64) {
	p.mu.Lock()
	entry, ok := p.pending[key]
	if !ok || entry.gen != gen || p.stopped {
		// Superseded by a later Notify, or cancelled.
		p.mu.Unlock()
		return
	}
	delete(p.pending, key)
	p.queue = append(p.queue, firedEntry{kind: entry.kind, path: key})
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Pipeline) dispatch() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case <-p.wake:
		}

		for {
			next, ok := p.dequeue()
			if !ok {
				break
			}
			select {
			case <-p.done:
				return
			default:
			}
			p.process(next)
		}
	}
}

func (p *Pipeline) dequeue() (firedEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return firedEntry{}, false
	}
	next := p.queue[0]
	p.queue = p.queue[1:]
	return next, true
}

func (p *Pipeline) process(fired firedEntry) {
	event := models.FileEvent{
		Kind:       fired.kind,
		Path:       fired.path,
		OccurredAt: time.Now(),
	}

	if fired.kind != models.ChangeRemoved {
		content, err := p.fileManager.ReadFile(fired.path, common.FileReadOptions{MaxSize: p.maxFileSize})
		if err != nil {
			p.logDrop(fired.path, err)
			return
		}
		event.Content = string(content)
	}

	p.emit(event)
}

func (p *Pipeline) logDrop(path string, err error) {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		p.logger.Debug().Str("path", path).Msg("File vanished before it settled, dropping event")
	case errors.Is(err, fs.ErrPermission):
		p.logger.Warn().Err(err).Str("path", path).Msg("File not readable, dropping event")
	case errors.Is(err, common.ErrFileTooLarge):
		p.logger.Info().Str("path", path).Int64("limit", p.maxFileSize).Msg("File exceeds size limit, dropping event")
	case errors.Is(err, common.ErrInvalidInput):
		p.logger.Debug().Str("path", path).Msg("Not a regular file, dropping event")
	default:
		p.logger.Warn().Err(err).Str("path", path).Msg("Failed to read changed file, dropping event")
	}
}

func (p *Pipeline) emit(event models.FileEvent) {
	p.listenersMu.RLock()
	subs := make([]subscription, len(p.listeners))
	copy(subs, p.listeners)
	p.listenersMu.RUnlock()

	for _, sub := range subs {
		p.deliver(sub.listener, event)
	}
}

func (p *Pipeline) deliver(listener Listener, event models.FileEvent) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Interface("panic", r).Str("path", event.Path).Msg("Listener panicked")
		}
	}()
	listener(event)
}

func canonicalPath(path string) string {
	cleaned := filepath.Clean(path)
	if abs, err := filepath.Abs(cleaned); err == nil {
		return abs
	}
	return cleaned
}
