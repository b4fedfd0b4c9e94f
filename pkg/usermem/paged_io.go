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

package usermem

import (
	"github.com/vsrinivas/fuchsia-sub313/pkg/context"
	"github.com/vsrinivas/fuchsia-sub313/pkg/errors/zxerr"
	"github.com/vsrinivas/fuchsia-sub313/pkg/hostarch"
	"github.com/vsrinivas/fuchsia-sub313/pkg/sync"
)

// PagedIO implements IO over a byte slice whose pages must be mapped before
// they are accessible. Copies with IOOpts.AddressSpaceActive set stop at the
// first unmapped page and return a SegmentationFault carrying its address;
// copies without it map pages on demand, mirroring the internal-mappings path
// of a real address space.
type PagedIO struct {
	mu     sync.Mutex
	bytes  []byte
	mapped []bool
}

// NewPagedIO creates a PagedIO covering size bytes, rounded up to the page
// size, with no pages mapped.
func NewPagedIO(size uint64) *PagedIO {
	size, ok := hostarch.PageRoundUp(size)
	if !ok {
		panic("size overflows")
	}
	return &PagedIO{
		bytes:  make([]byte, size),
		mapped: make([]bool, size/hostarch.PageSize),
	}
}

// Map makes all pages overlapping [addr, addr+length) accessible.
func (p *PagedIO) Map(addr hostarch.Addr, length uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	end, ok := hostarch.PageRoundUp(uint64(addr) + length)
	if !ok || end > uint64(len(p.bytes)) {
		panic("mapped range out of bounds")
	}
	for pg := uint64(addr.RoundDown()) / hostarch.PageSize; pg < end/hostarch.PageSize; pg++ {
		p.mapped[pg] = true
	}
}

// Unmap makes all pages overlapping [addr, addr+length) inaccessible.
func (p *PagedIO) Unmap(addr hostarch.Addr, length uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	end, ok := hostarch.PageRoundUp(uint64(addr) + length)
	if !ok || end > uint64(len(p.bytes)) {
		panic("unmapped range out of bounds")
	}
	for pg := uint64(addr.RoundDown()) / hostarch.PageSize; pg < end/hostarch.PageSize; pg++ {
		p.mapped[pg] = false
	}
}

// Size returns the size of the backing slice in bytes.
func (p *PagedIO) Size() uint64 {
	return uint64(len(p.bytes))
}

// Bytes returns the backing slice. The caller must not access it concurrently
// with copies.
func (p *PagedIO) Bytes() []byte {
	return p.bytes
}

// CopyOut implements IO.CopyOut.
func (p *PagedIO) CopyOut(ctx context.Context, addr hostarch.Addr, src []byte, opts IOOpts) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	done := 0
	for done < len(src) {
		n, err := p.pageRemaining(addr+hostarch.Addr(done), len(src)-done, hostarch.Write, opts)
		if err != nil {
			return done, err
		}
		copy(p.bytes[int(addr)+done:], src[done:done+n])
		done += n
	}
	return done, nil
}

// CopyIn implements IO.CopyIn.
func (p *PagedIO) CopyIn(ctx context.Context, addr hostarch.Addr, dst []byte, opts IOOpts) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	done := 0
	for done < len(dst) {
		n, err := p.pageRemaining(addr+hostarch.Addr(done), len(dst)-done, hostarch.Read, opts)
		if err != nil {
			return done, err
		}
		copy(dst[done:done+n], p.bytes[int(addr)+done:])
		done += n
	}
	return done, nil
}

// pageRemaining returns the number of bytes accessible at addr without
// crossing a page boundary, at most max. If the page containing addr is
// unmapped, it either faults (capturing mode) or maps it on demand.
//
// Preconditions: p.mu must be locked. max > 0.
func (p *PagedIO) pageRemaining(addr hostarch.Addr, max int, at hostarch.AccessType, opts IOOpts) (int, error) {
	if uint64(addr) >= uint64(len(p.bytes)) {
		return 0, zxerr.OutOfRange
	}
	pg := uint64(addr) / hostarch.PageSize
	if !p.mapped[pg] {
		if opts.AddressSpaceActive {
			return 0, SegmentationFault{Addr: addr, Access: at}
		}
		p.mapped[pg] = true
	}
	n := int(hostarch.PageSize - (uint64(addr) & hostarch.PageMask))
	if n > max {
		n = max
	}
	if rem := len(p.bytes) - int(addr); n > rem {
		n = rem
	}
	return n, nil
}
