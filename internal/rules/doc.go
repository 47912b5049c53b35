// Package rules holds the detectors run by the scan engine.
//
// Every rule works one line at a time. A secret split across several lines is
// not found, with one exception: a PEM private key block, whose BEGIN marker is
// detected and whose body is removed up to the matching END marker.
//
// A rule never edits a file. It returns alerts whose ProposedFix is the whole
// file with only the offending line (or key block) rewritten, so a fix can be
// written verbatim once the file is confirmed unchanged.
//
// Lines containing "secwatch:ignore" are skipped by every rule.
package rules
