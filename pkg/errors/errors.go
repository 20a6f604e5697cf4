// Unified error handling for the plotter host tools
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode is the category of a HostError
type ErrorCode string

const (
	ErrConfigSection    ErrorCode = "CONFIG_SECTION"
	ErrConfigOption     ErrorCode = "CONFIG_OPTION"
	ErrConfigValidation ErrorCode = "CONFIG_VALIDATION"
	ErrConfigType       ErrorCode = "CONFIG_TYPE"

	// Drawing data errors
	ErrImageFormat ErrorCode = "IMAGE_FORMAT"
	ErrImageRange  ErrorCode = "IMAGE_RANGE"
	ErrHeaderParse ErrorCode = "HEADER_PARSE"

	// Calibration and non-volatile storage errors
	ErrCalibration ErrorCode = "CALIBRATION"
	ErrStorage     ErrorCode = "STORAGE"

	// Hardware errors
	ErrInvalidHardware ErrorCode = "HARDWARE_INVALID"
	ErrHardwareInit    ErrorCode = "HARDWARE_INIT"

	// A motion command stopped by the safety monitor
	ErrInterrupted ErrorCode = "INTERRUPTED"
)

// HostError carries an ErrorCode plus whatever location is known: a file
// and line for parsed input, a section and option for configuration.
type HostError struct {
	Code    ErrorCode
	Message string
	File    string
	Line    int
	Section string
	Option  string
	Err     error
	Context map[string]interface{}
}

func (e *HostError) Error() string {
	where := e.Section
	if e.Option != "" {
		where = e.Section + "." + e.Option
	}
	if e.File != "" {
		where = fmt.Sprintf("%s:%d", e.File, e.Line)
	}
	msg := fmt.Sprintf("[%s:%s] %s", e.Code, where, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *HostError) Unwrap() error { return e.Err }

// The setters return e so that constructors can chain them.

func (e *HostError) SetFile(file string) *HostError {
	e.File = file
	return e
}

func (e *HostError) SetLine(line int) *HostError {
	e.Line = line
	return e
}

func (e *HostError) SetSection(section string) *HostError {
	e.Section = section
	return e
}

func (e *HostError) SetOption(option string) *HostError {
	e.Option = option
	return e
}

func (e *HostError) SetContext(key string, value interface{}) *HostError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a HostError with no cause.
func New(code ErrorCode, message string) *HostError {
	return &HostError{Code: code, Message: message}
}

// Wrap attaches code and message to err.
func Wrap(err error, code ErrorCode, message string) *HostError {
	return &HostError{Code: code, Message: message, Err: err}
}

// ImageFormatError reports a malformed image blob
func ImageFormatError(reason string) *HostError {
	return New(ErrImageFormat, "malformed image: "+reason)
}

// ImageRangeError reports an index outside an image
func ImageRangeError(index, count int) *HostError {
	return New(ErrImageRange, fmt.Sprintf("segment %d out of range [0, %d)", index, count)).
		SetContext("index", index).
		SetContext("count", count)
}

// HeaderParseError reports a failure importing a C header image
func HeaderParseError(file string, line int, reason string) *HostError {
	return New(ErrHeaderParse, reason).SetFile(file).SetLine(line)
}

// StorageError wraps a non-volatile storage failure
func StorageError(op string, err error) *HostError {
	return Wrap(err, ErrStorage, "storage "+op+" failed")
}

func CalibrationError(message string) *HostError {
	return New(ErrCalibration, message)
}

// HardwareInitError creates an error for hardware bring-up failure
func HardwareInitError(component string, err error) *HostError {
	return Wrap(err, ErrHardwareInit, "failed to initialize "+component).
		SetContext("component", component)
}

// InterruptedError reports an operation stopped by the safety monitor
func InterruptedError(op string, reason string) *HostError {
	return New(ErrInterrupted, op+" interrupted").SetContext("reason", reason)
}

// Is checks if err, or any error it wraps, carries the given code
func Is(err error, code ErrorCode) bool {
	var hostErr *HostError
	if stderrors.As(err, &hostErr) {
		return hostErr.Code == code
	}
	return false
}

// CodeOf returns the code of the first HostError in err's chain, or ""
func CodeOf(err error) ErrorCode {
	var hostErr *HostError
	if stderrors.As(err, &hostErr) {
		return hostErr.Code
	}
	return ""
}

// IsConfig reports whether err is any configuration error
func IsConfig(err error) bool {
	return Is(err, ErrConfigSection) ||
		Is(err, ErrConfigOption) ||
		Is(err, ErrConfigValidation) ||
		Is(err, ErrConfigType)
}

// IsImage reports whether err concerns drawing data
func IsImage(err error) bool {
	return Is(err, ErrImageFormat) ||
		Is(err, ErrImageRange) ||
		Is(err, ErrHeaderParse)
}
