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

package pager

import (
	"github.com/vsrinivas/fuchsia-sub313/pkg/abi/zircon"
	"github.com/vsrinivas/fuchsia-sub313/pkg/context"
	"github.com/vsrinivas/fuchsia-sub313/pkg/errors/zxerr"
	"github.com/vsrinivas/fuchsia-sub313/pkg/hostarch"
	"github.com/vsrinivas/fuchsia-sub313/pkg/sentry/vmaspace"
	"github.com/vsrinivas/fuchsia-sub313/pkg/sentry/vmo"
	"github.com/vsrinivas/fuchsia-sub313/pkg/usermem"
)

// QueryDirtyRanges enumerates the dirty ranges of obj overlapping
// [offset, offset+length), writing packed zircon.VmoDirtyRange records to
// bufAddr. At most bufSize/zircon.VmoDirtyRangeSize records are written. If
// actualAddr is non-zero, the number of records written is stored there; if
// availAddr is non-zero, the number of records that would have been written
// given a large enough buffer is stored there. bufAddr of zero with a bufSize
// of zero only counts.
//
// Records are copied out with the caller's address space active, so the copy
// cannot resolve its own page faults: a faulting copy would otherwise re-enter
// the pager that this call is servicing, on a lock path that may already hold
// obj's lock. Instead the copy captures the fault, enumeration unwinds with
// zxerr.ShouldWait, and the fault is resolved here with no locks held before
// enumeration resumes at the interrupted range.
func (d *Dispatcher) QueryDirtyRanges(ctx context.Context, as vmaspace.AddressSpace, obj vmo.Object, offset, length uint64, bufAddr hostarch.Addr, bufSize uint64, actualAddr, availAddr hostarch.Addr) error {
	uio := as.IO()
	maxRanges := bufSize / zircon.VmoDirtyRangeSize

	var (
		// index is the number of records written so far; it names the buffer
		// slot the next record goes to.
		index uint64

		// total counts all dirty ranges in the window, including ones the
		// buffer had no room for. Only maintained past index == maxRanges when
		// availAddr requests it.
		total uint64

		// fault is the captured fault to resolve before retrying. Only valid
		// when enumeration returned zxerr.ShouldWait.
		fault usermem.SegmentationFault

		rec [zircon.VmoDirtyRangeSize]byte
	)

	// The enumeration window shrinks across retries so that ranges already
	// written are not revisited: after a fault at range dr, the window restarts
	// at dr.Offset and index still names dr's buffer slot.
	curOffset := offset
	curLength := length

	visit := func(dr vmo.DirtyRange) error {
		if index >= maxRanges {
			if availAddr == 0 {
				// The buffer is full and the caller does not want the
				// total, so the rest of the pass would be wasted work.
				return zxerr.Stop
			}
			total++
			return nil
		}
		r := zircon.VmoDirtyRange{
			Offset: dr.Offset,
			Length: dr.Length,
		}
		if dr.IsZero {
			r.Options = zircon.DirtyRangeIsZero
		}
		r.MarshalBytes(rec[:])
		recAddr, ok := bufAddr.AddLength(index * zircon.VmoDirtyRangeSize)
		if !ok {
			return zxerr.InvalidArgs
		}
		if _, err := uio.CopyOut(ctx, recAddr, rec[:], usermem.IOOpts{AddressSpaceActive: true}); err != nil {
			if f, ok := err.(usermem.SegmentationFault); ok {
				fault = f
				curLength -= dr.Offset - curOffset
				curOffset = dr.Offset
				return zxerr.ShouldWait
			}
			return err
		}
		index++
		total++
		return nil
	}

	for {
		err := obj.EnumerateDirtyRanges(ctx, curOffset, curLength, visit)
		if err == nil {
			break
		}
		if err != zxerr.ShouldWait {
			return err
		}
		if err := as.SoftFault(ctx, fault.Addr, fault.Access); err != nil {
			return err
		}
	}

	// actual and avail live in plain (non-pager-backed) caller memory, so the
	// internal-mappings copy path is safe here.
	if actualAddr != 0 {
		if err := copyOutUint64(ctx, uio, actualAddr, index); err != nil {
			return err
		}
	}
	if availAddr != 0 {
		if err := copyOutUint64(ctx, uio, availAddr, total); err != nil {
			return err
		}
	}
	return nil
}

func copyOutUint64(ctx context.Context, uio usermem.IO, addr hostarch.Addr, v uint64) error {
	var buf [8]byte
	hostarch.ByteOrder.PutUint64(buf[:], v)
	_, err := uio.CopyOut(ctx, addr, buf[:], usermem.IOOpts{})
	return err
}
