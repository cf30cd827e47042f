// Package faults defines the typed failures a documentation run can hit.
// Each pipeline step wraps its low-level errors into one of these so the
// persisted error message names the step that broke.
package faults

import "fmt"

// FetchError covers clone and checkout failures.
type FetchError struct {
	SourceURL string
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.SourceURL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ScanError covers structure-scan failures (missing root, unreadable tree).
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// AnalysisError is a per-file parse failure. It is recorded against the
// file and never aborts the batch.
type AnalysisError struct {
	Path string
	Err  error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analyze %s: %v", e.Path, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// GenerationError covers model-call failures during documentation or
// annotation generation.
type GenerationError struct {
	Subject string
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("generate: %v", e.Err)
	}
	return fmt.Sprintf("generate %s: %v", e.Subject, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// PublishError covers the delivery step: artifact upload, branch push or
// pull-request creation.
type PublishError struct {
	Op  string
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish (%s): %v", e.Op, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// DecryptionError marks an unusable stored credential. Callers treat it as
// non-fatal and continue unauthenticated.
type DecryptionError struct {
	Err error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("decrypt credential: %v", e.Err)
}

func (e *DecryptionError) Unwrap() error { return e.Err }
