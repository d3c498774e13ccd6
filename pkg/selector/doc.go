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

// Package selector evaluates the boolean conditions of recipe "if:" nodes.
//
// A selector is a tiny language of identifiers, quoted strings, true/false,
// "==" and "!=", "not", "and", "or" and parentheses, with the usual
// precedence (not binds tighter than and, which binds tighter than or):
//
//	linux and not aarch64
//	target_platform == "osx-arm64" or win
//	${{ cuda_compiler_version != "None" }}
//
// Identifiers are looked up in an Env; an identifier the Env does not know
// is an error rather than false so misspelt selectors are caught.
//
// Prune applies selectors to a recipe tree: a mapping of the form
//
//	if: <selector>
//	then: <node>
//	else: <node>
//
// is replaced by the chosen branch. Without an else branch a false
// condition removes the node, and a list branch inside a list is spliced
// into the enclosing list.
package selector
