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

package zircon

import (
	"encoding/binary"
)

// Pager range operations, from zircon/types.h.
const (
	PagerOpFail           uint32 = 1
	PagerOpDirty          uint32 = 2
	PagerOpWritebackBegin uint32 = 3
	PagerOpWritebackEnd   uint32 = 4
)

// VmoTrapDirty requests that writes to clean pages of a pager-backed VMO trap
// to the pager instead of transitioning pages to dirty directly
// (ZX_VMO_TRAP_DIRTY).
const VmoTrapDirty uint32 = 1 << 3

// DirtyRangeIsZero marks an enumerated dirty range whose content is known to
// be entirely zero, so the pager may writeback without reading the pages
// (ZX_VMO_DIRTY_RANGE_IS_ZERO).
const DirtyRangeIsZero uint32 = 1 << 0

// VmoDirtyRangeSize is the wire size of VmoDirtyRange.
const VmoDirtyRangeSize = 24

// VmoDirtyRange is one record of the packed array written by
// zx_pager_query_dirty_ranges.
type VmoDirtyRange struct {
	Offset  uint64
	Length  uint64
	Options uint32
	// Reserved must be zero.
	Reserved uint32
}

// MarshalBytes writes r to dst in wire order.
//
// Preconditions: len(dst) >= VmoDirtyRangeSize.
func (r *VmoDirtyRange) MarshalBytes(dst []byte) {
	binary.LittleEndian.PutUint64(dst[0:8], r.Offset)
	binary.LittleEndian.PutUint64(dst[8:16], r.Length)
	binary.LittleEndian.PutUint32(dst[16:20], r.Options)
	binary.LittleEndian.PutUint32(dst[20:24], r.Reserved)
}

// UnmarshalBytes reads r from src in wire order.
//
// Preconditions: len(src) >= VmoDirtyRangeSize.
func (r *VmoDirtyRange) UnmarshalBytes(src []byte) {
	r.Offset = binary.LittleEndian.Uint64(src[0:8])
	r.Length = binary.LittleEndian.Uint64(src[8:16])
	r.Options = binary.LittleEndian.Uint32(src[16:20])
	r.Reserved = binary.LittleEndian.Uint32(src[20:24])
}
