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

// Package zxerr contains Zircon status codes exported as error interface
// pointers. This allows for fast comparison and return operations. Callers
// compare returned errors against these sentinels by identity, the same way
// Zircon code compares zx_status_t values.
package zxerr

import (
	"github.com/vsrinivas/fuchsia-sub313/pkg/abi/zircon"
	"github.com/vsrinivas/fuchsia-sub313/pkg/errors"
)

// The following errors are semantically identical to their zircon.Status
// counterparts, but are distinct pointer values so that callers can compare
// and return them cheaply. The Status method recovers the numeric code for
// the syscall boundary.
var (
	Internal        = errors.New(zircon.ErrInternal, "internal error")
	NotSupported    = errors.New(zircon.ErrNotSupported, "operation not supported")
	NoResources     = errors.New(zircon.ErrNoResources, "no resources")
	NoMemory        = errors.New(zircon.ErrNoMemory, "no memory")
	InvalidArgs     = errors.New(zircon.ErrInvalidArgs, "invalid arguments")
	BadHandle       = errors.New(zircon.ErrBadHandle, "bad handle")
	WrongType       = errors.New(zircon.ErrWrongType, "wrong type")
	OutOfRange      = errors.New(zircon.ErrOutOfRange, "out of range")
	BufferTooSmall  = errors.New(zircon.ErrBufferTooSmall, "buffer too small")
	BadState        = errors.New(zircon.ErrBadState, "bad state")
	TimedOut        = errors.New(zircon.ErrTimedOut, "timed out")
	ShouldWait      = errors.New(zircon.ErrShouldWait, "should wait")
	Canceled        = errors.New(zircon.ErrCanceled, "canceled")
	PeerClosed      = errors.New(zircon.ErrPeerClosed, "peer closed")
	NotFound        = errors.New(zircon.ErrNotFound, "not found")
	AlreadyExists   = errors.New(zircon.ErrAlreadyExists, "already exists")
	AccessDenied    = errors.New(zircon.ErrAccessDenied, "access denied")
	IO              = errors.New(zircon.ErrIO, "I/O error")
	IORefused       = errors.New(zircon.ErrIORefused, "I/O refused")
	IODataIntegrity = errors.New(zircon.ErrIODataIntegrity, "I/O data integrity failure")
	IODataLoss      = errors.New(zircon.ErrIODataLoss, "I/O data loss")
	NoSpace         = errors.New(zircon.ErrNoSpace, "no space")

	// Next and Stop are enumeration control statuses; they never escape to
	// the syscall boundary.
	Next = errors.New(zircon.ErrNext, "advance to next item")
	Stop = errors.New(zircon.ErrStop, "stop enumeration")
)

var statusMap = map[zircon.Status]*errors.Error{
	zircon.ErrInternal:        Internal,
	zircon.ErrNotSupported:    NotSupported,
	zircon.ErrNoResources:     NoResources,
	zircon.ErrNoMemory:        NoMemory,
	zircon.ErrInvalidArgs:     InvalidArgs,
	zircon.ErrBadHandle:       BadHandle,
	zircon.ErrWrongType:       WrongType,
	zircon.ErrOutOfRange:      OutOfRange,
	zircon.ErrBufferTooSmall:  BufferTooSmall,
	zircon.ErrBadState:        BadState,
	zircon.ErrTimedOut:        TimedOut,
	zircon.ErrShouldWait:      ShouldWait,
	zircon.ErrCanceled:        Canceled,
	zircon.ErrPeerClosed:      PeerClosed,
	zircon.ErrNotFound:        NotFound,
	zircon.ErrAlreadyExists:   AlreadyExists,
	zircon.ErrAccessDenied:    AccessDenied,
	zircon.ErrIO:              IO,
	zircon.ErrIORefused:       IORefused,
	zircon.ErrIODataIntegrity: IODataIntegrity,
	zircon.ErrIODataLoss:      IODataLoss,
	zircon.ErrNoSpace:         NoSpace,
	zircon.ErrNext:            Next,
	zircon.ErrStop:            Stop,
}

// FromStatus returns the sentinel error for the given status code, or false
// if the code is unknown (or ZX_OK, which has no error value).
func FromStatus(s zircon.Status) (*errors.Error, bool) {
	err, ok := statusMap[s]
	return err, ok
}

// Status returns the numeric status code for err. A nil error is ErrOK;
// errors that are not *errors.Error report ErrInternal.
func Status(err error) zircon.Status {
	if err == nil {
		return zircon.ErrOK
	}
	if e, ok := err.(*errors.Error); ok {
		return e.Status()
	}
	return zircon.ErrInternal
}
