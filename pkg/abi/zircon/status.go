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

// Package zircon contains constants and types shared between the kernel side
// of the pager subsystem and its syscall surface. Values match the Zircon
// system ABI.
package zircon

// Status is a Zircon status code. ZX_OK is 0; errors are negative.
type Status int32

// Status codes, from zircon/errors.h.
const (
	ErrOK              Status = 0
	ErrInternal        Status = -1
	ErrNotSupported    Status = -2
	ErrNoResources     Status = -3
	ErrNoMemory        Status = -4
	ErrInvalidArgs     Status = -10
	ErrBadHandle       Status = -11
	ErrWrongType       Status = -12
	ErrOutOfRange      Status = -14
	ErrBufferTooSmall  Status = -15
	ErrBadState        Status = -20
	ErrTimedOut        Status = -21
	ErrShouldWait      Status = -22
	ErrCanceled        Status = -23
	ErrPeerClosed      Status = -24
	ErrNotFound        Status = -25
	ErrAlreadyExists   Status = -26
	ErrAccessDenied    Status = -30
	ErrIO              Status = -40
	ErrIORefused       Status = -41
	ErrIODataIntegrity Status = -42
	ErrIODataLoss      Status = -43
	ErrNoSpace         Status = -54
	ErrStop            Status = -60
	ErrNext            Status = -61
)
