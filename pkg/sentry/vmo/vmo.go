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

// Package vmo defines the backing memory object the pager operates on, and a
// paged implementation with byte-range dirty tracking.
package vmo

import (
	"github.com/vsrinivas/fuchsia-sub313/pkg/context"
	"github.com/vsrinivas/fuchsia-sub313/pkg/errors"
)

// DirtyRange is one enumerated dirty byte range.
type DirtyRange struct {
	// Offset is the byte offset of the start of the range.
	Offset uint64

	// Length is the length of the range in bytes.
	Length uint64

	// IsZero is true if the content of the range is known to be entirely
	// zero, so it can be written back without reading the pages.
	IsZero bool
}

// DirtyVisitor is called once per dirty range, in ascending offset order.
// Returning nil continues enumeration. Returning zxerr.Stop halts enumeration
// without error. Any other error aborts the pass and is propagated verbatim
// by EnumerateDirtyRanges; in particular the pager's enumeration callback
// returns zxerr.ShouldWait after capturing a user copy fault.
type DirtyVisitor func(dr DirtyRange) error

// Object is a memory object that supports pager range operations.
//
// All Object methods validate their window the same way: offset and length
// must be page-aligned or the call fails with zxerr.InvalidArgs, and a window
// extending past the object's size fails with zxerr.OutOfRange.
type Object interface {
	// Size returns the object's size in bytes.
	Size() uint64

	// DirtyPages transitions pages in [offset, offset+length) to dirty,
	// resolving any outstanding dirty-trap page requests they cover.
	DirtyPages(ctx context.Context, offset, length uint64) error

	// WritebackBegin marks the start of a writeback transaction over
	// [offset, offset+length): dirty pages in the window become
	// awaiting-clean.
	WritebackBegin(ctx context.Context, offset, length uint64) error

	// WritebackEnd marks the end of a writeback transaction: pages in the
	// window that are still awaiting-clean (not re-dirtied since
	// WritebackBegin) become clean.
	WritebackEnd(ctx context.Context, offset, length uint64) error

	// FailPageRequests fails outstanding page requests overlapping
	// [offset, offset+length) with the given error.
	FailPageRequests(ctx context.Context, offset, length uint64, pageErr *errors.Error) error

	// EnumerateDirtyRanges calls visit for each dirty range overlapping
	// [offset, offset+length), in ascending offset order, clipped to the
	// window. Errors from visit other than zxerr.Stop are propagated
	// verbatim.
	EnumerateDirtyRanges(ctx context.Context, offset, length uint64, visit DirtyVisitor) error
}

// PageRequestSource generates asynchronous page requests on behalf of an
// Object. It is implemented by the pager's page source.
type PageRequestSource interface {
	// SendAsyncRequest delivers a page request for [offset, offset+length)
	// with the given command to the pager service.
	SendAsyncRequest(ctx context.Context, cmd uint16, offset, length uint64) error

	// TrapDirty returns true if writes to clean pages must generate
	// dirty-trap requests instead of transitioning pages directly.
	TrapDirty() bool
}
