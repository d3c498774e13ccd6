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

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	rerrors "github.com/BenjaminLowry/rattler-build/pkg/errors"
	"github.com/BenjaminLowry/rattler-build/pkg/recipe"
	"github.com/BenjaminLowry/rattler-build/pkg/serializer"
)

// Error codes specific to the HTTP layer. Render failures use the codes
// of the errors package.
const (
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeMethodNotAllowed  = "METHOD_NOT_ALLOWED"
	ErrCodeTimeout           = "TIMEOUT"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"requestId"`
	Timestamp time.Time      `json:"timestamp"`
	Retryable bool           `json:"retryable"`
}

// WriteError writes an ErrorResponse carrying the request ID.
func WriteError(w http.ResponseWriter, r *http.Request, statusCode int,
	code, message string, retryable bool, details map[string]any) {

	requestID := RequestID(r.Context())
	if requestID == "" {
		requestID = uuid.New().String()
	}

	serializer.RespondJSON(w, statusCode, ErrorResponse{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
		Retryable: retryable,
	})
}

// writeRenderError reports err with a status derived from its error code.
// Stage errors add the stage and source position to the details.
func writeRenderError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		renderFailures.WithLabelValues(string(recipe.StageRendering), ErrCodeTimeout).Inc()
		WriteError(w, r, http.StatusGatewayTimeout, ErrCodeTimeout, "render timed out", true, nil)
		return
	}

	code := rerrors.CodeOf(err)
	if code == "" {
		code = rerrors.ErrCodeInternal
	}
	details := map[string]any{}
	var se *recipe.StageError
	if errors.As(err, &se) {
		details["stage"] = string(se.Stage)
		if se.Path != "" {
			details["path"] = se.Path
		}
		if se.Location.Line > 0 {
			details["line"] = se.Location.Line
			details["column"] = se.Location.Column
		}
	}
	stage := "request"
	if se != nil {
		stage = string(se.Stage)
	}
	renderFailures.WithLabelValues(stage, string(code)).Inc()
	if len(details) == 0 {
		details = nil
	}
	WriteError(w, r, statusForCode(code), string(code), err.Error(), false, details)
}

func statusForCode(code rerrors.ErrorCode) int {
	switch code {
	case rerrors.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case rerrors.ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}
