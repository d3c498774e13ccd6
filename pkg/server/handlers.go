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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	rerrors "github.com/BenjaminLowry/rattler-build/pkg/errors"
	"github.com/BenjaminLowry/rattler-build/pkg/matchspec"
	"github.com/BenjaminLowry/rattler-build/pkg/platform"
	"github.com/BenjaminLowry/rattler-build/pkg/recipe"
	"github.com/BenjaminLowry/rattler-build/pkg/serializer"
	"github.com/BenjaminLowry/rattler-build/pkg/variant"
	"github.com/BenjaminLowry/rattler-build/pkg/version"
)

// RenderRequest is the body of POST /v1/render. Recipe and VariantConfig
// hold YAML documents.
type RenderRequest struct {
	Recipe         string            `json:"recipe"`
	VariantConfig  string            `json:"variantConfig,omitempty"`
	TargetPlatform string            `json:"targetPlatform,omitempty"`
	BuildPlatform  string            `json:"buildPlatform,omitempty"`
	HostPlatform   string            `json:"hostPlatform,omitempty"`
	Overrides      map[string]string `json:"overrides,omitempty"`
	Subpackages    map[string]string `json:"subpackages,omitempty"`
	Resolved       map[string]string `json:"resolved,omitempty"`
}

// RenderResponse is the reply of POST /v1/render.
type RenderResponse struct {
	RequestID string         `json:"requestId"`
	Outputs   recipe.Outputs `json:"outputs"`
}

// MatchRequest is the body of POST /v1/match.
type MatchRequest struct {
	Spec        string `json:"spec"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Build       string `json:"build,omitempty"`
	BuildNumber int    `json:"buildNumber,omitempty"`
	Channel     string `json:"channel,omitempty"`
	Subdir      string `json:"subdir,omitempty"`
}

// MatchResponse is the reply of POST /v1/match.
type MatchResponse struct {
	Spec    string `json:"spec"`
	Matches bool   `json:"matches"`
}

// handleRender handles POST /v1/render
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed", false, nil)
		return
	}
	var req RenderRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Recipe == "" {
		writeRenderError(w, r, rerrors.New(rerrors.ErrCodeInvalidRequest, "recipe is required"))
		return
	}
	opts, err := s.renderOptions(req)
	if err != nil {
		writeRenderError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.RenderTimeout)
	defer cancel()

	outputs, err := recipe.NewRenderer(opts...).Render(ctx, []byte(req.Recipe))
	if err != nil {
		slog.Debug("render request failed", "requestID", RequestID(r.Context()), "error", err)
		writeRenderError(w, r, err)
		return
	}
	if outputs == nil {
		outputs = recipe.Outputs{}
	}
	renderOutputs.Observe(float64(len(outputs)))
	serializer.RespondJSON(w, http.StatusOK, RenderResponse{
		RequestID: RequestID(r.Context()),
		Outputs:   outputs,
	})
}

func (s *Server) renderOptions(req RenderRequest) ([]recipe.Option, error) {
	target := platform.Current()
	if req.TargetPlatform != "" {
		p, err := platform.Parse(req.TargetPlatform)
		if err != nil {
			return nil, err
		}
		target = p
	}
	targets := platform.NewTargets(target)
	for _, f := range []struct {
		value string
		dst   *platform.Platform
	}{
		{req.BuildPlatform, &targets.Build},
		{req.HostPlatform, &targets.Host},
	} {
		if f.value == "" {
			continue
		}
		p, err := platform.Parse(f.value)
		if err != nil {
			return nil, err
		}
		*f.dst = p
	}

	var cfg *variant.Config
	if req.VariantConfig != "" {
		var err error
		if cfg, err = variant.ParseConfig([]byte(req.VariantConfig)); err != nil {
			return nil, err
		}
	}
	return []recipe.Option{
		recipe.WithTargets(targets),
		recipe.WithVariantConfig(cfg),
		recipe.WithOverrides(req.Overrides),
		recipe.WithPins(req.Subpackages, req.Resolved),
	}, nil
}

// handleMatch handles POST /v1/match
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed", false, nil)
		return
	}
	var req MatchRequest
	if !s.decode(w, r, &req) {
		return
	}
	spec, err := matchspec.Parse(req.Spec)
	if err != nil {
		writeRenderError(w, r, err)
		return
	}
	ver, err := version.Parse(req.Version)
	if err != nil {
		writeRenderError(w, r, err)
		return
	}
	serializer.RespondJSON(w, http.StatusOK, MatchResponse{
		Spec: spec.String(),
		Matches: matchspec.Satisfies(spec, matchspec.Candidate{
			Name:        req.Name,
			Version:     ver,
			Build:       req.Build,
			BuildNumber: req.BuildNumber,
			Channel:     req.Channel,
			Subdir:      req.Subdir,
		}),
	})
}

// decode reads a JSON body into v, replying with an error when it cannot.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, s.config.MaxRequestBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		WriteError(w, r, status, string(rerrors.ErrCodeInvalidRequest),
			fmt.Sprintf("invalid request body: %v", err), false, nil)
		return false
	}
	return true
}
