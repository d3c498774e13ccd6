// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a structured error classification.
type ErrorCode string

const (
	// ErrCodeInternal indicates an internal system error.
	ErrCodeInternal ErrorCode = "INTERNAL"
	// ErrCodeInvalidRequest indicates malformed or invalid input.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"

	// ErrCodeRender indicates a malformed template expression, an unknown
	// helper or filter, an undefined variable, or a cyclic context reference.
	ErrCodeRender ErrorCode = "RENDER"
	// ErrCodeSelector indicates a malformed selector or an unknown identifier
	// used inside one.
	ErrCodeSelector ErrorCode = "SELECTOR"
	// ErrCodeVersionParse indicates a version string with disallowed
	// characters or an invalid layout.
	ErrCodeVersionParse ErrorCode = "VERSION_PARSE"
	// ErrCodeConstraintParse indicates a malformed operator or version inside
	// a version constraint.
	ErrCodeConstraintParse ErrorCode = "CONSTRAINT_PARSE"
	// ErrCodeMatchSpecParse indicates an invalid package name or malformed
	// dependency sub-field.
	ErrCodeMatchSpecParse ErrorCode = "MATCHSPEC_PARSE"
	// ErrCodeZipLengthMismatch indicates zipped variant keys whose candidate
	// lists differ in length.
	ErrCodeZipLengthMismatch ErrorCode = "ZIP_LENGTH_MISMATCH"
	// ErrCodeVariantConflict indicates an explicit dependency constraint that
	// the chosen variant value violates.
	ErrCodeVariantConflict ErrorCode = "VARIANT_CONFLICT"
	// ErrCodeRecipeParse indicates a missing required field or a recipe node
	// with the wrong shape.
	ErrCodeRecipeParse ErrorCode = "RECIPE_PARSE"
)

// StructuredError provides structured error information for better observability.
// It includes an error code for programmatic handling, a human-readable message,
// the underlying cause, and optional context for debugging.
type StructuredError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is and errors.As support.
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// New creates a new StructuredError with the given code and message.
func New(code ErrorCode, message string) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
	}
}

// NewWithContext creates a new StructuredError with context information.
func NewWithContext(code ErrorCode, message string, context map[string]any) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Context: context,
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(code ErrorCode, message string, cause error) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithContext wraps an error with additional context information.
func WrapWithContext(code ErrorCode, message string, cause error, context map[string]any) *StructuredError {
	return &StructuredError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: context,
	}
}

// CodeOf returns the code of the outermost StructuredError in err's chain,
// or an empty code when there is none.
func CodeOf(err error) ErrorCode {
	var se *StructuredError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ""
}

// HasCode reports whether any StructuredError in err's chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var se *StructuredError
		if !stderrors.As(err, &se) {
			return false
		}
		if se.Code == code {
			return true
		}
		err = se.Cause
	}
	return false
}
