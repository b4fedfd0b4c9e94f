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

package vmo

import (
	"github.com/vsrinivas/fuchsia-sub313/pkg/abi/zircon"
	"github.com/vsrinivas/fuchsia-sub313/pkg/context"
	"github.com/vsrinivas/fuchsia-sub313/pkg/errors"
	"github.com/vsrinivas/fuchsia-sub313/pkg/errors/zxerr"
	"github.com/vsrinivas/fuchsia-sub313/pkg/hostarch"
	"github.com/vsrinivas/fuchsia-sub313/pkg/sync"
)

// PagedObject is a pager-backed memory object. It tracks dirty byte ranges at
// page granularity, two-phase writeback state, and outstanding page requests.
//
// Lock order: PagedObject.mu may be held while calling into the
// PageRequestSource; the source must not call back into the object.
type PagedObject struct {
	mu sync.Mutex

	// size is the object size in bytes, page-aligned. Immutable.
	size uint64

	// dirty is the set of dirty ranges.
	dirty dirtySet

	// pending is the set of ranges transitioned to awaiting-clean by
	// WritebackBegin and not re-dirtied since. The zero flag is unused.
	pending dirtySet

	// source generates page requests, or is nil if the object is detached
	// from its pager.
	source PageRequestSource

	// requests are the outstanding page requests.
	requests []*PageRequest
}

// NewPagedObject creates a PagedObject of the given size, rounded up to the
// page size.
func NewPagedObject(size uint64) (*PagedObject, error) {
	size, ok := hostarch.PageRoundUp(size)
	if !ok {
		return nil, zxerr.InvalidArgs
	}
	return &PagedObject{
		size:    size,
		dirty:   newDirtySet(),
		pending: newDirtySet(),
	}, nil
}

// SetSource attaches the page request source. It must be called before any
// page requests are generated.
func (o *PagedObject) SetSource(src PageRequestSource) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.source = src
}

// DetachSource detaches the page request source; subsequent page requests
// fail with zxerr.BadState.
func (o *PagedObject) DetachSource() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.source = nil
}

// Size implements Object.Size.
func (o *PagedObject) Size() uint64 {
	return o.size
}

// checkRange validates a page-aligned operation window.
func (o *PagedObject) checkRange(offset, length uint64) (end uint64, err error) {
	if !hostarch.IsPageAligned(offset) || !hostarch.IsPageAligned(length) {
		return 0, zxerr.InvalidArgs
	}
	end = offset + length
	if end < offset {
		return 0, zxerr.InvalidArgs
	}
	if end > o.size {
		return 0, zxerr.OutOfRange
	}
	return end, nil
}

// DirtyPages implements Object.DirtyPages.
func (o *PagedObject) DirtyPages(ctx context.Context, offset, length uint64) error {
	end, err := o.checkRange(offset, length)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dirty.mark(offset, end, false)
	// Re-dirtied pages drop out of any in-flight writeback.
	o.pending.clear(offset, end)
	o.resolveLocked(zircon.PagerVmoDirty, offset, end)
	return nil
}

// ZeroPages marks [offset, offset+length) dirty with known-zero content.
// Enumeration reports such ranges with DirtyRange.IsZero set.
func (o *PagedObject) ZeroPages(ctx context.Context, offset, length uint64) error {
	end, err := o.checkRange(offset, length)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dirty.mark(offset, end, true)
	o.pending.clear(offset, end)
	return nil
}

// WritebackBegin implements Object.WritebackBegin.
func (o *PagedObject) WritebackBegin(ctx context.Context, offset, length uint64) error {
	end, err := o.checkRange(offset, length)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, seg := range o.dirty.overlapping(offset, end) {
		start, segEnd := seg.start, seg.end
		if start < offset {
			start = offset
		}
		if segEnd > end {
			segEnd = end
		}
		o.pending.mark(start, segEnd, false)
	}
	return nil
}

// WritebackEnd implements Object.WritebackEnd.
func (o *PagedObject) WritebackEnd(ctx context.Context, offset, length uint64) error {
	end, err := o.checkRange(offset, length)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, seg := range o.pending.overlapping(offset, end) {
		start, segEnd := seg.start, seg.end
		if start < offset {
			start = offset
		}
		if segEnd > end {
			segEnd = end
		}
		o.dirty.clear(start, segEnd)
	}
	o.pending.clear(offset, end)
	return nil
}

// EnumerateDirtyRanges implements Object.EnumerateDirtyRanges.
//
// visit runs with the object's lock held; it must not call back into the
// object.
func (o *PagedObject) EnumerateDirtyRanges(ctx context.Context, offset, length uint64, visit DirtyVisitor) error {
	end, err := o.checkRange(offset, length)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, seg := range o.dirty.overlapping(offset, end) {
		start, segEnd := seg.start, seg.end
		if start < offset {
			start = offset
		}
		if segEnd > end {
			segEnd = end
		}
		err := visit(DirtyRange{
			Offset: start,
			Length: segEnd - start,
			IsZero: seg.zero,
		})
		if err == zxerr.Stop {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// FailPageRequests implements Object.FailPageRequests.
func (o *PagedObject) FailPageRequests(ctx context.Context, offset, length uint64, pageErr *errors.Error) error {
	end, err := o.checkRange(offset, length)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	kept := o.requests[:0]
	for _, req := range o.requests {
		if req.end <= offset || req.start >= end {
			kept = append(kept, req)
			continue
		}
		req.completeLocked(pageErr)
	}
	o.requests = kept
	return nil
}

// RequirePages generates a read page request for [offset, offset+length) and
// returns it. The caller resolves it by waiting for the pager to call
// SupplyPages (or FailPageRequests).
func (o *PagedObject) RequirePages(ctx context.Context, offset, length uint64) (*PageRequest, error) {
	return o.require(ctx, zircon.PagerVmoRead, offset, length)
}

// RequireDirty generates a dirty-trap request for [offset, offset+length) if
// the source traps dirty transitions; otherwise it transitions the pages to
// dirty immediately and returns an already-complete request.
func (o *PagedObject) RequireDirty(ctx context.Context, offset, length uint64) (*PageRequest, error) {
	o.mu.Lock()
	src := o.source
	o.mu.Unlock()
	if src == nil {
		return nil, zxerr.BadState
	}
	if !src.TrapDirty() {
		if err := o.DirtyPages(ctx, offset, length); err != nil {
			return nil, err
		}
		return completedRequest(), nil
	}
	return o.require(ctx, zircon.PagerVmoDirty, offset, length)
}

func (o *PagedObject) require(ctx context.Context, cmd uint16, offset, length uint64) (*PageRequest, error) {
	end, err := o.checkRange(offset, length)
	if err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.source == nil {
		return nil, zxerr.BadState
	}
	req := &PageRequest{
		cmd:   cmd,
		start: offset,
		end:   end,
		done:  make(chan struct{}),
	}
	if err := o.source.SendAsyncRequest(ctx, cmd, offset, length); err != nil {
		return nil, err
	}
	o.requests = append(o.requests, req)
	return req, nil
}

// SupplyPages resolves read page requests covered by [offset, offset+length).
func (o *PagedObject) SupplyPages(ctx context.Context, offset, length uint64) error {
	end, err := o.checkRange(offset, length)
	if err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resolveLocked(zircon.PagerVmoRead, offset, end)
	return nil
}

// resolveLocked trims [start, end) off outstanding requests with the given
// command, completing any whose window becomes empty.
//
// Preconditions: o.mu must be locked.
func (o *PagedObject) resolveLocked(cmd uint16, start, end uint64) {
	kept := o.requests[:0]
	for _, req := range o.requests {
		if req.cmd == cmd {
			if start <= req.start && req.start < end {
				req.start = end
			}
			if start < req.end && req.end <= end {
				req.end = start
			}
			if req.start >= req.end {
				req.completeLocked(nil)
				continue
			}
		}
		kept = append(kept, req)
	}
	o.requests = kept
}

// PageRequest is an outstanding page request generated by a PagedObject.
type PageRequest struct {
	cmd uint16

	// [start, end) is the unresolved remainder of the request, guarded by
	// the owning object's mu.
	start uint64
	end   uint64

	// result is set before done is closed.
	result *errors.Error
	done   chan struct{}
}

func completedRequest() *PageRequest {
	req := &PageRequest{done: make(chan struct{})}
	close(req.done)
	return req
}

// completeLocked finishes the request with the given result.
//
// Preconditions: the owning object's mu must be locked (or the request not
// yet published).
func (r *PageRequest) completeLocked(result *errors.Error) {
	r.result = result
	close(r.done)
}

// Wait blocks until the request is resolved. It returns nil if the pages
// were supplied, the failure error if the request was failed, and
// zxerr.Canceled if ctx is done first.
func (r *PageRequest) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		if r.result == nil {
			return nil
		}
		return r.result
	case <-ctx.Done():
		return zxerr.Canceled
	}
}
