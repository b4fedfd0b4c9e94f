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
	"github.com/google/btree"
)

// dirtySeg is one segment of a dirtySet: the byte range [start, end) with a
// per-segment zero flag.
type dirtySeg struct {
	start uint64
	end   uint64
	zero  bool
}

// dirtySet is an ordered set of non-overlapping byte ranges. Adjacent
// segments with the same zero flag are coalesced; adjacent segments with
// different flags are kept separate.
type dirtySet struct {
	t *btree.BTreeG[dirtySeg]
}

func newDirtySet() dirtySet {
	return dirtySet{t: btree.NewG(8, func(a, b dirtySeg) bool {
		return a.start < b.start
	})}
}

// overlapping returns all segments intersecting [start, end), in ascending
// order.
func (s *dirtySet) overlapping(start, end uint64) []dirtySeg {
	if start >= end {
		return nil
	}
	var out []dirtySeg
	// The predecessor segment may extend into the window.
	s.t.DescendLessOrEqual(dirtySeg{start: start}, func(seg dirtySeg) bool {
		if seg.end > start {
			out = append(out, seg)
		}
		return false
	})
	s.t.AscendGreaterOrEqual(dirtySeg{start: start + 1}, func(seg dirtySeg) bool {
		if seg.start >= end {
			return false
		}
		out = append(out, seg)
		return true
	})
	return out
}

// clear removes [start, end) from the set, splitting segments that straddle
// the boundaries.
func (s *dirtySet) clear(start, end uint64) {
	for _, seg := range s.overlapping(start, end) {
		s.t.Delete(seg)
		if seg.start < start {
			s.t.ReplaceOrInsert(dirtySeg{start: seg.start, end: start, zero: seg.zero})
		}
		if seg.end > end {
			s.t.ReplaceOrInsert(dirtySeg{start: end, end: seg.end, zero: seg.zero})
		}
	}
}

// mark inserts [start, end) with the given zero flag, overriding whatever the
// range previously held, and coalesces with matching neighbors.
func (s *dirtySet) mark(start, end uint64, zero bool) {
	if start >= end {
		return
	}
	s.clear(start, end)
	var left dirtySeg
	hasLeft := false
	s.t.DescendLessOrEqual(dirtySeg{start: start}, func(seg dirtySeg) bool {
		left, hasLeft = seg, true
		return false
	})
	if hasLeft && left.end == start && left.zero == zero {
		s.t.Delete(left)
		start = left.start
	}
	if right, ok := s.t.Get(dirtySeg{start: end}); ok && right.zero == zero {
		s.t.Delete(right)
		end = right.end
	}
	s.t.ReplaceOrInsert(dirtySeg{start: start, end: end, zero: zero})
}

// empty returns true if the set holds no segments.
func (s *dirtySet) empty() bool {
	return s.t.Len() == 0
}
