// Copyright 2024 The Fuchsia Authors.
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

// Package errors holds the standardized error definition for this tree.
package errors

import (
	"github.com/vsrinivas/fuchsia-sub313/pkg/abi/zircon"
)

// Error represents a Zircon status code with a descriptive message.
type Error struct {
	status  zircon.Status
	message string
}

// New creates a new *Error.
func New(status zircon.Status, message string) *Error {
	return &Error{
		status:  status,
		message: message,
	}
}

// Error implements error.Error.
func (e *Error) Error() string { return e.message }

// Status returns the underlying zircon.Status value.
func (e *Error) Status() zircon.Status { return e.status }
