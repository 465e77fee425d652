// Package djerr implements the error taxonomy of spec §7 as typed sentinel
// errors, the idiomatic Go re-expression of the source's exception flow
// (see SPEC_FULL.md's redesign note).
package djerr

import "errors"

// Sentinel errors, matched with errors.Is at call sites.
var (
	// ErrDecode: source audio cannot be read. Analyzer returns it; the
	// queue records FAILED; the planner treats the track as unavailable.
	ErrDecode = errors.New("decode error")

	// ErrAnalysisPartial: one sub-analysis failed. Non-fatal; defaults are
	// substituted and the Track is still stored.
	ErrAnalysisPartial = errors.New("partial analysis")

	// ErrOracle: oracle network/timeout/invalid-JSON failure. Retried with
	// backoff; eventually falls back to a default.
	ErrOracle = errors.New("oracle error")

	// ErrInsufficientLibrary: fewer than 2 viable candidates. Fatal for the
	// request.
	ErrInsufficientLibrary = errors.New("insufficient library")

	// ErrEffect: a DSP kernel produced NaN/Inf or otherwise failed. The
	// effect is skipped; rendering continues.
	ErrEffect = errors.New("effect failure")

	// ErrRenderAllocation: the output buffer could not be allocated. Fatal.
	ErrRenderAllocation = errors.New("render allocation failure")

	// ErrCancelled: cooperative cancellation observed at a stage boundary.
	ErrCancelled = errors.New("cancelled")
)

// Decode wraps err as an ErrDecode for the given filepath.
func Decode(filepath string, err error) error {
	return &wrapped{sentinel: ErrDecode, msg: filepath, cause: err}
}

// Oracle wraps err as an ErrOracle for the given call kind.
func Oracle(call string, err error) error {
	return &wrapped{sentinel: ErrOracle, msg: call, cause: err}
}

// Effect wraps err as an ErrEffect for the given effect type.
func Effect(effectType string, err error) error {
	return &wrapped{sentinel: ErrEffect, msg: effectType, cause: err}
}

type wrapped struct {
	sentinel error
	msg      string
	cause    error
}

func (w *wrapped) Error() string {
	if w.cause != nil {
		return w.sentinel.Error() + ": " + w.msg + ": " + w.cause.Error()
	}
	return w.sentinel.Error() + ": " + w.msg
}

func (w *wrapped) Unwrap() error { return w.sentinel }

func (w *wrapped) Cause() error { return w.cause }
