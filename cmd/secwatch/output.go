package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/aleister1102/secwatch/internal/models"
	"github.com/aleister1102/secwatch/internal/scanner"
)

const (
	sarifVersion = "2.1.0"
	sarifSchema  = "https://json.schemastore.org/sarif-2.1.0.json"
	toolName     = "secwatch"
)

// Minimal SARIF 2.1.0 document, enough for code scanning uploads.
type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name  string      `json:"name"`
	Rules []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string       `json:"id"`
	ShortDescription sarifMessage `json:"shortDescription"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn"`
}

func writeJSON(w io.Writer, results []models.ScanResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}

func writeConsole(w io.Writer, results []models.ScanResult, scanned int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, result := range results {
		fmt.Fprintf(tw, "%s\n", result.FilePath)
		for _, alert := range result.Alerts {
			fmt.Fprintf(tw, "  %d:%d\t%s\t%s\t%s\n",
				alert.Line, alert.Column, strings.ToUpper(string(alert.Severity)), alert.RuleID, alert.Message)
		}
	}
	fmt.Fprintf(tw, "\n%s in %s (%s scanned)\n",
		plural(countAlerts(results), "alert"), plural(len(results), "file"), plural(scanned, "file"))
	return tw.Flush()
}

func writeSARIF(w io.Writer, results []models.ScanResult, engine *scanner.Engine) error {
	driver := sarifDriver{Name: toolName, Rules: []sarifRule{}}
	for _, rule := range engine.Rules() {
		driver.Rules = append(driver.Rules, sarifRule{
			ID:               rule.ID(),
			ShortDescription: sarifMessage{Text: rule.Description()},
		})
	}

	run := sarifRun{Tool: sarifTool{Driver: driver}, Results: []sarifResult{}}
	for _, result := range results {
		for _, alert := range result.Alerts {
			run.Results = append(run.Results, sarifResult{
				RuleID:  alert.RuleID,
				Level:   sarifLevel(alert.Severity),
				Message: sarifMessage{Text: alert.Message},
				Locations: []sarifLocation{{
					PhysicalLocation: sarifPhysicalLocation{
						ArtifactLocation: sarifArtifactLocation{URI: filepath.ToSlash(alert.FilePath)},
						Region:           sarifRegion{StartLine: alert.Line, StartColumn: alert.Column},
					},
				}},
			})
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(sarifLog{Version: sarifVersion, Schema: sarifSchema, Runs: []sarifRun{run}})
}

func sarifLevel(severity models.Severity) string {
	switch severity {
	case models.SeverityCritical, models.SeverityHigh:
		return "error"
	case models.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}
