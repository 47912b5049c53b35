package main

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aleister1102/secwatch/internal/common"
	"github.com/aleister1102/secwatch/internal/config"
	"github.com/aleister1102/secwatch/internal/models"
	"github.com/aleister1102/secwatch/internal/monitor"
	"github.com/aleister1102/secwatch/internal/scanner"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// errFindings is returned when alerts reach the --fail-on severity.
var errFindings = errors.New("findings at or above the failure threshold")

type scanOptions struct {
	format string
	failOn string
}

func newScanCommand(root *rootOptions) *cobra.Command {
	opts := &scanOptions{}

	cmd := &cobra.Command{
		Use:   "scan <path>...",
		Short: "Scan files or directories once and print the findings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, root, opts, args)
		},
	}
	cmd.Flags().StringVarP(&opts.format, "format", "f", "console", "Output format: console, json or sarif")
	cmd.Flags().StringVar(&opts.failOn, "fail-on", "", "Exit non-zero when an alert has at least this severity (critical, high, medium, low, info)")
	return cmd
}

func (o *scanOptions) validate() error {
	switch strings.ToLower(o.format) {
	case "console", "json", "sarif":
	default:
		return common.NewValidationError("format", o.format, "must be console, json or sarif")
	}
	if o.failOn != "" && !models.Severity(strings.ToLower(o.failOn)).IsValid() {
		return common.NewValidationError("fail-on", o.failOn, "unknown severity")
	}
	return nil
}

func runScan(cmd *cobra.Command, root *rootOptions, opts *scanOptions, paths []string) error {
	if err := opts.validate(); err != nil {
		return err
	}

	cfg, err := root.loadConfig(root.bootstrapLogger(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	log, err := buildLogger(cfg.LogConfig, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	engine := scanner.NewEngine(log, scanner.EngineOptions{
		ExtraSkipExtensions: cfg.ScanConfig.ExtraSkipExtensions,
		MaxFileSize:         cfg.WatchConfig.MaxFileSizeBytes,
	})
	engine.Reconcile(cfg.ScanConfig.EnabledRules, cfg.ScanConfig.DisabledRules)

	files, err := collectFiles(paths, ignoreSet(cfg.WatchConfig), engine)
	if err != nil {
		return err
	}

	results := scanFiles(engine, files, log)

	out := cmd.OutOrStdout()
	switch strings.ToLower(opts.format) {
	case "json":
		err = writeJSON(out, results)
	case "sarif":
		err = writeSARIF(out, results, engine)
	default:
		err = writeConsole(out, results, len(files))
	}
	if err != nil {
		return err
	}

	if opts.failOn != "" && reachesThreshold(results, models.Severity(strings.ToLower(opts.failOn))) {
		return errFindings
	}
	return nil
}

func ignoreSet(wc config.WatchConfig) map[string]bool {
	set := make(map[string]bool)
	for _, dir := range monitor.DefaultIgnoreDirs {
		set[dir] = true
	}
	for _, dir := range wc.IgnoreDirs {
		set[dir] = true
	}
	return set
}

// collectFiles expands paths into a sorted, de-duplicated list of scannable files.
func collectFiles(paths []string, ignore map[string]bool, engine *scanner.Engine) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if seen[path] || engine.ShouldSkip(path) || common.IsAtomicTempFile(path) {
			return
		}
		seen[path] = true
		files = append(files, path)
	}

	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && ignore[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, common.WrapErrorf(err, "walk %s", root)
		}
	}

	sort.Strings(files)
	return files, nil
}

// scanFiles returns the results that carry alerts. Unreadable files are logged and skipped.
func scanFiles(engine *scanner.Engine, files []string, log zerolog.Logger) []models.ScanResult {
	results := []models.ScanResult{}
	for _, path := range files {
		result, err := engine.ScanFile(path)
		if err != nil {
			event := log.Warn()
			if errors.Is(err, common.ErrFileTooLarge) {
				event = log.Info()
			}
			event.Err(err).Str("path", path).Msg("Skipping file")
			continue
		}
		if result.HasAlerts() {
			results = append(results, result)
		}
	}
	return results
}

func reachesThreshold(results []models.ScanResult, threshold models.Severity) bool {
	for _, result := range results {
		if result.HighestSeverity().Rank() >= threshold.Rank() {
			return true
		}
	}
	return false
}

func countAlerts(results []models.ScanResult) int {
	total := 0
	for _, result := range results {
		total += len(result.Alerts)
	}
	return total
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
