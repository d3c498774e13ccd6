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

package recipe

import (
	"errors"
	"fmt"

	rerrors "github.com/BenjaminLowry/rattler-build/pkg/errors"
	"github.com/BenjaminLowry/rattler-build/pkg/tree"
)

// Stage is a step of the render pipeline.
type Stage string

const (
	StageLoading            Stage = "loading"
	StageContextBuilt       Stage = "context"
	StageVariantExpanding   Stage = "variant_expanding"
	StageRendering          Stage = "rendering"
	StageVersionNormalizing Stage = "version_normalizing"
	StageAssembling         Stage = "assembling"
	StageDone               Stage = "done"
)

// StageError reports the stage, document path and source position of a
// render failure. The wrapped error keeps its error code.
type StageError struct {
	Stage    Stage
	Path     string
	Location tree.Location
	Err      error
}

func (e *StageError) Error() string {
	switch {
	case e.Path != "":
		return fmt.Sprintf("%s: %s (%s): %v", e.Stage, e.Path, e.Location, e.Err)
	case e.Location.Line > 0:
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Location, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
}

func (e *StageError) Unwrap() error { return e.Err }

// Code returns the error code of the wrapped error.
func (e *StageError) Code() rerrors.ErrorCode {
	return rerrors.CodeOf(e.Err)
}

// stageError wraps err for stage, lifting the position of a node error.
// An error that already is a StageError is returned unchanged.
func stageError(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	out := &StageError{Stage: stage, Err: err}
	var ne *tree.NodeError
	if errors.As(err, &ne) {
		out.Path, out.Location, out.Err = ne.Path, ne.Loc, ne.Err
	}
	return out
}

// assemblyStage tells normalisation failures (bad versions and
// dependency specs) apart from structural ones.
func assemblyStage(err error) Stage {
	switch rerrors.CodeOf(err) {
	case rerrors.ErrCodeVersionParse, rerrors.ErrCodeConstraintParse, rerrors.ErrCodeMatchSpecParse:
		return StageVersionNormalizing
	default:
		return StageAssembling
	}
}
