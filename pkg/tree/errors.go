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

package tree

import (
	"errors"
	"fmt"
)

// NodeError attaches a document path and source location to an error
// raised while processing a node.
type NodeError struct {
	Path string
	Loc  Location
	Err  error
}

func (e *NodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Loc, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Path, e.Loc, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

// WrapNode wraps err with the position of node unless err already carries
// a NodeError, in which case the innermost position is kept.
func WrapNode(path string, node *Value, err error) error {
	if err == nil {
		return nil
	}
	var ne *NodeError
	if errors.As(err, &ne) {
		return err
	}
	var loc Location
	if node != nil {
		loc = node.Loc
	}
	return &NodeError{Path: path, Loc: loc, Err: err}
}
