package scanner

import (
	"fmt"
	"sync"

	"github.com/aleister1102/secwatch/internal/common"
	"github.com/aleister1102/secwatch/internal/models"
	"github.com/aleister1102/secwatch/internal/rules"
	"github.com/rs/zerolog"
)

// EngineOptions configures an Engine.
type EngineOptions struct {
	// ExtraSkipExtensions are added to the built-in skip-list, e.g. ".snap".
	ExtraSkipExtensions []string
	// MaxFileSize caps ScanFile reads. Zero uses the FileManager default.
	MaxFileSize int64
	// Rules to register at construction. Nil registers rules.DefaultRules().
	Rules []rules.Rule
}

// Engine is an ordered registry of rules. Scan runs every rule against one
// file and aggregates the alerts. Rules may be registered and removed while
// scans are running.
type Engine struct {
	logger      zerolog.Logger
	fileManager *common.FileManager
	skip        skipList
	maxFileSize int64

	mu    sync.RWMutex
	order []string
	byID  map[string]rules.Rule
}

// NewEngine creates an Engine with the given rules, or the default catalogue.
func NewEngine(logger zerolog.Logger, opts EngineOptions) *Engine {
	e := &Engine{
		logger:      logger.With().Str("module", "ScanEngine").Logger(),
		fileManager: common.NewFileManager(logger),
		skip:        newSkipList(opts.ExtraSkipExtensions),
		maxFileSize: opts.MaxFileSize,
		byID:        make(map[string]rules.Rule),
	}

	initial := opts.Rules
	if initial == nil {
		initial = rules.DefaultRules()
	}
	for _, rule := range initial {
		e.Register(rule)
	}
	return e
}

// Register adds rule. A rule with an ID already registered replaces the old
// one in its original position.
func (e *Engine) Register(rule rules.Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := rule.ID()
	if _, exists := e.byID[id]; !exists {
		e.order = append(e.order, id)
	}
	e.byID[id] = rule
}

// Unregister removes the rule with the given ID and reports whether it was present.
func (e *Engine) Unregister(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.byID[id]; !exists {
		return false
	}
	delete(e.byID, id)
	for i, existing := range e.order {
		if existing == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	return true
}

// Rules returns the registered rules in run order.
func (e *Engine) Rules() []rules.Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]rules.Rule, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.byID[id])
	}
	return out
}

// Reconcile rebuilds membership from the default catalogue: every default rule
// listed in enabled (all of them when enabled is empty) and not in disabled.
// Unknown IDs are logged and ignored.
func (e *Engine) Reconcile(enabled, disabled []string) {
	known := make(map[string]bool)
	for _, id := range rules.DefaultRuleIDs() {
		known[id] = true
	}

	want := make(map[string]bool)
	for _, id := range enabled {
		if !known[id] {
			e.logger.Warn().Str("rule_id", id).Msg("Unknown rule in enabled list, ignoring")
			continue
		}
		want[id] = true
	}
	off := make(map[string]bool)
	for _, id := range disabled {
		if !known[id] {
			e.logger.Warn().Str("rule_id", id).Msg("Unknown rule in disabled list, ignoring")
		}
		off[id] = true
	}

	var next []rules.Rule
	for _, rule := range rules.DefaultRules() {
		id := rule.ID()
		if len(enabled) > 0 && !want[id] {
			continue
		}
		if off[id] {
			continue
		}
		next = append(next, rule)
	}

	e.mu.Lock()
	e.order = e.order[:0]
	e.byID = make(map[string]rules.Rule, len(next))
	for _, rule := range next {
		e.order = append(e.order, rule.ID())
		e.byID[rule.ID()] = rule
	}
	e.mu.Unlock()

	e.logger.Info().Int("rules", len(next)).Msg("Rule set reconciled")
}

// ShouldSkip reports whether path is excluded from scanning by its name alone.
func (e *Engine) ShouldSkip(path string) bool {
	return e.skip.matches(path)
}

// Scan runs every registered rule over content. A rule that fails or panics is
// logged and contributes nothing; the others still run.
func (e *Engine) Scan(content, filePath string) models.ScanResult {
	result := models.NewScanResult(filePath)
	if e.ShouldSkip(filePath) {
		return result
	}

	for _, rule := range e.Rules() {
		alerts, err := e.runRule(rule, content, filePath)
		if err != nil {
			e.logger.Error().Err(err).Str("rule_id", rule.ID()).Str("path", filePath).Msg("Rule failed, skipping")
			continue
		}
		result.Alerts = append(result.Alerts, alerts...)
	}

	if result.HasAlerts() {
		e.logger.Debug().Str("path", filePath).Int("alerts", len(result.Alerts)).Msg("Scan found alerts")
	}
	return result
}

// ScanFile reads path and scans it. Skipped paths are not read.
func (e *Engine) ScanFile(path string) (models.ScanResult, error) {
	if e.ShouldSkip(path) {
		return models.NewScanResult(path), nil
	}

	opts := common.DefaultFileReadOptions()
	if e.maxFileSize > 0 {
		opts.MaxSize = e.maxFileSize
	}
	content, err := e.fileManager.ReadFile(path, opts)
	if err != nil {
		return models.ScanResult{}, common.WrapErrorf(err, "scan %s", path)
	}
	return e.Scan(string(content), path), nil
}

func (e *Engine) runRule(rule rules.Rule, content, filePath string) (alerts []models.Alert, err error) {
	defer func() {
		if r := recover(); r != nil {
			alerts = nil
			err = fmt.Errorf("rule panicked: %v", r)
		}
	}()
	return rule.Scan(content, filePath)
}
