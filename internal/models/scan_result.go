package models

import "time"

// ScanResult holds every alert produced by one scan of one file.
type ScanResult struct {
	FilePath  string    `json:"filePath"`
	Alerts    []Alert   `json:"alerts"`
	ScannedAt time.Time `json:"scannedAt"`
}

// NewScanResult returns an empty result for filePath stamped with the current time.
func NewScanResult(filePath string) ScanResult {
	return ScanResult{
		FilePath:  filePath,
		Alerts:    []Alert{},
		ScannedAt: time.Now(),
	}
}

// HasAlerts reports whether the scan found anything.
func (r ScanResult) HasAlerts() bool {
	return len(r.Alerts) > 0
}

// HighestSeverity returns the most severe alert level, or "" when there are none.
func (r ScanResult) HighestSeverity() Severity {
	var highest Severity
	for _, alert := range r.Alerts {
		if alert.Severity.Rank() > highest.Rank() {
			highest = alert.Severity
		}
	}
	return highest
}
