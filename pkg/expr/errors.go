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

package expr

import "errors"

// Error types for template rendering failures. Every public entry point
// wraps them in a RENDER structured error.
var (
	ErrSyntax        = errors.New("syntax error")
	ErrUnknownHelper = errors.New("unknown helper")
	ErrUnknownFilter = errors.New("unknown filter")
	ErrUndefined     = errors.New("undefined variable")
	ErrCycle         = errors.New("cyclic context reference")
	ErrType          = errors.New("unsupported operand type")
	ErrArgument      = errors.New("invalid argument")
	ErrOverflow      = errors.New("integer overflow")
)
