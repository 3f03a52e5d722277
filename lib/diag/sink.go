// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package diag

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ItemContext identifies the program item being processed when a
// recoverable failure occurs. It is recorded before entering
// generation and consulted only when generation signals failure, so
// diagnostics always name the offending item without any ambient
// state.
type ItemContext struct {
	// Kind is the item kind ("function", "static", "global_asm").
	Kind string
	// Symbol is the item's external symbol name.
	Symbol string
	// Partition is the partition the item belongs to, when known.
	Partition string
}

func (c ItemContext) String() string {
	if c.Partition == "" {
		return fmt.Sprintf("%s %s", c.Kind, c.Symbol)
	}
	return fmt.Sprintf("%s %s (partition %s)", c.Kind, c.Symbol, c.Partition)
}

// Diagnostic is one recorded recoverable failure.
type Diagnostic struct {
	Context ItemContext
	Err     error
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %v", d.Context, d.Err)
}

// Unwrap exposes the underlying error to errors.Is/As.
func (d Diagnostic) Unwrap() error {
	return d.Err
}

// Sink accumulates recoverable failures across a codegen session.
// Components record errors and keep going; the orchestrator polls the
// sink at defined checkpoints and aborts once any error has been
// recorded. No recoverable condition crosses a component boundary as
// a returned error.
//
// Safe for concurrent use: per-partition work may run on a worker
// pool.
type Sink struct {
	mu     sync.Mutex
	diags  []Diagnostic
	logger *slog.Logger
}

// NewSink creates a sink. The logger may be nil, in which case
// recorded diagnostics are not logged as they arrive.
func NewSink(logger *slog.Logger) *Sink {
	return &Sink{logger: logger}
}

// Report records a recoverable failure for the given item.
func (s *Sink) Report(context ItemContext, err error) {
	s.mu.Lock()
	s.diags = append(s.diags, Diagnostic{Context: context, Err: err})
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Error("codegen diagnostic",
			"item_kind", context.Kind,
			"symbol", context.Symbol,
			"partition", context.Partition,
			"error", err)
	}
}

// Errorf records a recoverable failure that is not tied to a single
// item, such as a failed artifact copy.
func (s *Sink) Errorf(format string, args ...any) {
	err := fmt.Errorf(format, args...)

	s.mu.Lock()
	s.diags = append(s.diags, Diagnostic{Err: err})
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Error("codegen diagnostic", "error", err)
	}
}

// ErrorCount returns the number of recorded diagnostics.
func (s *Sink) ErrorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.diags)
}

// Diagnostics returns a copy of the recorded diagnostics.
func (s *Sink) Diagnostics() []Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	diags := make([]Diagnostic, len(s.diags))
	copy(diags, s.diags)
	return diags
}

// AbortIfErrors is the checkpoint consulted by the orchestrator. It
// returns nil when no diagnostics have been recorded, otherwise an
// aggregate error joining every diagnostic. Partially-correct output
// must never be returned past a failed checkpoint.
func (s *Sink) AbortIfErrors() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.diags) == 0 {
		return nil
	}

	joined := make([]error, 0, len(s.diags)+1)
	joined = append(joined, fmt.Errorf("codegen failed with %d error(s)", len(s.diags)))
	for _, diag := range s.diags {
		joined = append(joined, diag)
	}
	return errors.Join(joined...)
}
