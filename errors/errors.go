// Package errors provides error handling for bankfeed.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - Sentinel errors for the pipeline failure taxonomy
//
// Usage:
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check failure class
//	if errors.Is(err, errors.ErrSchemaConfig) {
//	    // fatal at process scope
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

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
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Sentinel errors for the pipeline failure taxonomy.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the class.
var (
	// ErrSchemaConfig indicates a malformed schema: an unknown predicate name,
	// a dangling or cyclic foreign reference, or a malformed range.
	// Fatal at process scope; must abort startup.
	ErrSchemaConfig = New("schema configuration error")

	// ErrUnknownDataset indicates a file whose stem matches no schema entry.
	ErrUnknownDataset = New("unknown dataset")

	// ErrMissingColumn indicates a declared column absent from a decoded file.
	ErrMissingColumn = New("missing column")

	// ErrEmptyFrame indicates an export was attempted with no rows.
	ErrEmptyFrame = New("no data to export")

	// ErrExport indicates the warehouse loader rejected or failed a transfer.
	ErrExport = New("export failed")
)

// IsSchemaConfigError checks if an error is or wraps ErrSchemaConfig.
func IsSchemaConfigError(err error) bool {
	return err != nil && Is(err, ErrSchemaConfig)
}

// IsUnknownDatasetError checks if an error is or wraps ErrUnknownDataset.
func IsUnknownDatasetError(err error) bool {
	return err != nil && Is(err, ErrUnknownDataset)
}

// NewSchemaConfigError creates a schema configuration error with a formatted message.
func NewSchemaConfigError(format string, args ...interface{}) error {
	return Wrap(ErrSchemaConfig, Newf(format, args...).Error())
}
