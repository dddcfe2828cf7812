// Package terrors provides error handling for ts-bridge.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - PII-safe error formatting
//   - Hint/detail annotations surfaced to the LSP client as InternalError messages
//
// Usage:
//
//	// Create new error
//	err := terrors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return terrors.Wrap(err, "failed to do something")
//	}
//
//	// Add hints for users
//	return terrors.WithHint(err, "try increasing the timeout")
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package terrors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint           = crdb.WithHint
	WithHintf          = crdb.WithHintf
	WithDetail         = crdb.WithDetail
	WithDetailf        = crdb.WithDetailf
	WithSafeDetails    = crdb.WithSafeDetails
	WithSecondaryError = crdb.WithSecondaryError
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapOnce     = crdb.UnwrapOnce
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Assertions
var (
	AssertionFailedf                = crdb.AssertionFailedf
	NewAssertionErrorWithWrappedErrf = crdb.NewAssertionErrorWithWrappedErrf
)

// Sentinel errors used across package boundaries.
var (
	ErrNotStarted         = New("tsserver child not started")
	ErrMissingStdin       = New("tsserver child missing stdin pipe")
	ErrMissingStdout      = New("tsserver child missing stdout pipe")
	ErrNoReceipts         = New("route produced no dispatch receipts")
	ErrMissingAdapter     = New("no adapter registered for routed method")
	ErrSessionNotFound    = New("session not registered with broker")
	ErrRestarting         = New("request cancelled: project broker is restarting")
)
