package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExtraction       = errors.New("extraction error")
	ErrAnalysis         = errors.New("analysis error")
	ErrBeepNotFound     = errors.New("beep not found")
	ErrOffsetUnresolved = errors.New("offset unresolved")
	ErrPlanning         = errors.New("planning error")
	ErrTrim             = errors.New("trim error")
	ErrConfiguration    = errors.New("configuration error")
)

// Wrap builds an error message carrying stage context and tags it with marker
// so callers can classify it with errors.Is. marker should be one of the
// sentinels above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrAnalysis
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Fatal reports whether err should stop processing of a pair. Beep absence
// and an unresolved offset are outcomes the caller decides on.
func Fatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrBeepNotFound) && !errors.Is(err, ErrOffsetUnresolved)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "sync failure"
	}
	return strings.Join(parts, ": ")
}
