// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

package backup

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable, machine-readable class of a backup failure.
type ErrorKind string

const (
	KindNotFound                   ErrorKind = "NOT_FOUND"
	KindOperationInProgress        ErrorKind = "OPERATION_IN_PROGRESS"
	KindTimeout                    ErrorKind = "TIMEOUT"
	KindValidationFailed           ErrorKind = "VALIDATION_FAILED"
	KindEngineFailure              ErrorKind = "ENGINE_FAILURE"
	KindManualInterventionRequired ErrorKind = "MANUAL_INTERVENTION_REQUIRED"
)

// Sentinels for errors.Is. Any *Error with the same kind matches.
var (
	ErrNotFound                   = &Error{Kind: KindNotFound}
	ErrOperationInProgress        = &Error{Kind: KindOperationInProgress}
	ErrTimeout                    = &Error{Kind: KindTimeout}
	ErrValidationFailed           = &Error{Kind: KindValidationFailed}
	ErrEngineFailure              = &Error{Kind: KindEngineFailure}
	ErrManualInterventionRequired = &Error{Kind: KindManualInterventionRequired}
)

// Error is a classified backup failure.
type Error struct {
	Kind     ErrorKind
	Op       string
	FileName string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.FileName != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.FileName)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
// regardless of operation or file name.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.FileName == "" && t.Message == "" && t.Err == nil
}

// KindOf returns the kind of the outermost *Error in err's chain, or "" when
// err is nil or unclassified.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newError(kind ErrorKind, op, fileName, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, FileName: fileName, Message: message, Err: err}
}

func notFound(op, fileName string) *Error {
	return newError(KindNotFound, op, fileName, "backup not found", nil)
}

func validationFailed(op, fileName, message string) *Error {
	return newError(KindValidationFailed, op, fileName, message, nil)
}

func inProgress(op string, current OperationRecord) *Error {
	msg := "operation already in progress"
	if current.Kind != "" {
		msg = fmt.Sprintf("%s operation already in progress", current.Kind)
	}
	return newError(KindOperationInProgress, op, current.TargetFileName, msg, nil)
}
