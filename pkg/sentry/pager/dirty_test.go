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
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vsrinivas/fuchsia-sub313/pkg/abi/zircon"
	"github.com/vsrinivas/fuchsia-sub313/pkg/context"
	"github.com/vsrinivas/fuchsia-sub313/pkg/errors/zxerr"
	"github.com/vsrinivas/fuchsia-sub313/pkg/hostarch"
	"github.com/vsrinivas/fuchsia-sub313/pkg/sentry/vmaspace"
	"github.com/vsrinivas/fuchsia-sub313/pkg/sentry/vmo"
)

const (
	testASSize = 64 * hostarch.PageSize

	// User buffer layout used by most tests. actualAddr and availAddr live on
	// a page of their own; the record buffer gets the pages in between.
	testBufAddr    hostarch.Addr = 4 * hostarch.PageSize
	testActualAddr hostarch.Addr = 16 * hostarch.PageSize
	testAvailAddr  hostarch.Addr = 16*hostarch.PageSize + 8
)

// dirtyObject returns a PagedObject with three dirty ranges: pages [0, 1) and
// [4, 6) with content, and page [8, 9) known-zero.
func dirtyObject(t *testing.T) *vmo.PagedObject {
	t.Helper()
	ctx := context.Background()
	obj, err := vmo.NewPagedObject(16 * hostarch.PageSize)
	if err != nil {
		t.Fatalf("NewPagedObject: %v", err)
	}
	if err := obj.DirtyPages(ctx, 0, hostarch.PageSize); err != nil {
		t.Fatalf("DirtyPages: %v", err)
	}
	if err := obj.DirtyPages(ctx, 4*hostarch.PageSize, 2*hostarch.PageSize); err != nil {
		t.Fatalf("DirtyPages: %v", err)
	}
	if err := obj.ZeroPages(ctx, 8*hostarch.PageSize, hostarch.PageSize); err != nil {
		t.Fatalf("ZeroPages: %v", err)
	}
	return obj
}

var testDirtyRanges = []zircon.VmoDirtyRange{
	{Offset: 0, Length: hostarch.PageSize},
	{Offset: 4 * hostarch.PageSize, Length: 2 * hostarch.PageSize},
	{Offset: 8 * hostarch.PageSize, Length: hostarch.PageSize, Options: zircon.DirtyRangeIsZero},
}

// readRecords decodes n records from the record buffer at testBufAddr.
func readRecords(as *vmaspace.PagedAddressSpace, n uint64) []zircon.VmoDirtyRange {
	out := make([]zircon.VmoDirtyRange, n)
	buf := as.Paged().Bytes()
	for i := range out {
		out[i].UnmarshalBytes(buf[int(testBufAddr)+i*zircon.VmoDirtyRangeSize:])
	}
	return out
}

// readCounter decodes the uint64 counter at addr.
func readCounter(as *vmaspace.PagedAddressSpace, addr hostarch.Addr) uint64 {
	return hostarch.ByteOrder.Uint64(as.Paged().Bytes()[addr:])
}

func TestQueryDirtyRanges(t *testing.T) {
	d := New()
	defer d.OnZeroHandles()
	ctx := context.Background()
	obj := dirtyObject(t)
	as := vmaspace.NewPagedAddressSpace(testASSize)
	as.Paged().Map(testBufAddr, 8*zircon.VmoDirtyRangeSize)

	err := d.QueryDirtyRanges(ctx, as, obj, 0, obj.Size(), testBufAddr, 8*zircon.VmoDirtyRangeSize, testActualAddr, testAvailAddr)
	if err != nil {
		t.Fatalf("QueryDirtyRanges: %v", err)
	}
	actual := readCounter(as, testActualAddr)
	avail := readCounter(as, testAvailAddr)
	if actual != 3 || avail != 3 {
		t.Errorf("got actual=%d avail=%d, want 3, 3", actual, avail)
	}
	if diff := cmp.Diff(testDirtyRanges, readRecords(as, actual)); diff != "" {
		t.Errorf("dirty ranges mismatch (-want +got):\n%s", diff)
	}
}

func TestQueryDirtyRangesTruncated(t *testing.T) {
	d := New()
	defer d.OnZeroHandles()
	ctx := context.Background()
	obj := dirtyObject(t)
	as := vmaspace.NewPagedAddressSpace(testASSize)
	as.Paged().Map(testBufAddr, zircon.VmoDirtyRangeSize)

	// Room for one record; the total still reflects all three ranges.
	err := d.QueryDirtyRanges(ctx, as, obj, 0, obj.Size(), testBufAddr, zircon.VmoDirtyRangeSize, testActualAddr, testAvailAddr)
	if err != nil {
		t.Fatalf("QueryDirtyRanges: %v", err)
	}
	actual := readCounter(as, testActualAddr)
	avail := readCounter(as, testAvailAddr)
	if actual != 1 || avail != 3 {
		t.Errorf("got actual=%d avail=%d, want 1, 3", actual, avail)
	}
	if diff := cmp.Diff(testDirtyRanges[:1], readRecords(as, actual)); diff != "" {
		t.Errorf("dirty ranges mismatch (-want +got):\n%s", diff)
	}
}

func TestQueryDirtyRangesTruncatedWithoutAvail(t *testing.T) {
	d := New()
	defer d.OnZeroHandles()
	ctx := context.Background()
	obj := dirtyObject(t)
	as := vmaspace.NewPagedAddressSpace(testASSize)
	as.Paged().Map(testBufAddr, 2*zircon.VmoDirtyRangeSize)

	err := d.QueryDirtyRanges(ctx, as, obj, 0, obj.Size(), testBufAddr, 2*zircon.VmoDirtyRangeSize, testActualAddr, 0)
	if err != nil {
		t.Fatalf("QueryDirtyRanges: %v", err)
	}
	if actual := readCounter(as, testActualAddr); actual != 2 {
		t.Errorf("got actual=%d, want 2", actual)
	}
	if diff := cmp.Diff(testDirtyRanges[:2], readRecords(as, 2)); diff != "" {
		t.Errorf("dirty ranges mismatch (-want +got):\n%s", diff)
	}
}

func TestQueryDirtyRangesCountOnly(t *testing.T) {
	d := New()
	defer d.OnZeroHandles()
	ctx := context.Background()
	obj := dirtyObject(t)
	as := vmaspace.NewPagedAddressSpace(testASSize)

	// Zero-sized buffer: nothing is written, only counted.
	err := d.QueryDirtyRanges(ctx, as, obj, 0, obj.Size(), 0, 0, testActualAddr, testAvailAddr)
	if err != nil {
		t.Fatalf("QueryDirtyRanges: %v", err)
	}
	actual := readCounter(as, testActualAddr)
	avail := readCounter(as, testAvailAddr)
	if actual != 0 || avail != 3 {
		t.Errorf("got actual=%d avail=%d, want 0, 3", actual, avail)
	}
}

func TestQueryDirtyRangesWindowClipping(t *testing.T) {
	d := New()
	defer d.OnZeroHandles()
	ctx := context.Background()
	obj := dirtyObject(t)
	as := vmaspace.NewPagedAddressSpace(testASSize)
	as.Paged().Map(testBufAddr, 8*zircon.VmoDirtyRangeSize)

	// [5, 9) pages: clips the middle range and includes the zero range.
	err := d.QueryDirtyRanges(ctx, as, obj, 5*hostarch.PageSize, 4*hostarch.PageSize, testBufAddr, 8*zircon.VmoDirtyRangeSize, testActualAddr, 0)
	if err != nil {
		t.Fatalf("QueryDirtyRanges: %v", err)
	}
	actual := readCounter(as, testActualAddr)
	want := []zircon.VmoDirtyRange{
		{Offset: 5 * hostarch.PageSize, Length: hostarch.PageSize},
		{Offset: 8 * hostarch.PageSize, Length: hostarch.PageSize, Options: zircon.DirtyRangeIsZero},
	}
	if actual != uint64(len(want)) {
		t.Fatalf("got actual=%d, want %d", actual, len(want))
	}
	if diff := cmp.Diff(want, readRecords(as, actual)); diff != "" {
		t.Errorf("dirty ranges mismatch (-want +got):\n%s", diff)
	}
}

// faultCountingAS wraps an address space and counts SoftFault calls.
type faultCountingAS struct {
	*vmaspace.PagedAddressSpace
	faults int
}

func (as *faultCountingAS) SoftFault(ctx context.Context, addr hostarch.Addr, at hostarch.AccessType) error {
	as.faults++
	return as.PagedAddressSpace.SoftFault(ctx, addr, at)
}

func TestQueryDirtyRangesFaultRetry(t *testing.T) {
	d := New()
	defer d.OnZeroHandles()
	ctx := context.Background()
	obj := dirtyObject(t)
	as := &faultCountingAS{PagedAddressSpace: vmaspace.NewPagedAddressSpace(testASSize)}

	// No buffer page is mapped, and the buffer starts close enough to a page
	// boundary that the second record straddles it. The first copy faults on
	// the first page; the retry writes one record and then faults partway
	// through the second, which must be rewritten whole after the fault
	// resolves.
	bufAddr := testBufAddr + hostarch.PageSize - hostarch.Addr(zircon.VmoDirtyRangeSize+12)
	err := d.QueryDirtyRanges(ctx, as, obj, 0, obj.Size(), bufAddr, 8*zircon.VmoDirtyRangeSize, testActualAddr, testAvailAddr)
	if err != nil {
		t.Fatalf("QueryDirtyRanges: %v", err)
	}
	if as.faults != 2 {
		t.Errorf("got %d soft faults, want 2", as.faults)
	}
	actual := readCounter(as.PagedAddressSpace, testActualAddr)
	avail := readCounter(as.PagedAddressSpace, testAvailAddr)
	if actual != 3 || avail != 3 {
		t.Errorf("got actual=%d avail=%d, want 3, 3", actual, avail)
	}
	got := make([]zircon.VmoDirtyRange, actual)
	buf := as.Paged().Bytes()
	for i := range got {
		got[i].UnmarshalBytes(buf[int(bufAddr)+i*zircon.VmoDirtyRangeSize:])
	}
	if diff := cmp.Diff(testDirtyRanges, got); diff != "" {
		t.Errorf("dirty ranges mismatch (-want +got):\n%s", diff)
	}
}

func TestQueryDirtyRangesCopyError(t *testing.T) {
	d := New()
	defer d.OnZeroHandles()
	ctx := context.Background()
	obj := dirtyObject(t)
	as := vmaspace.NewPagedAddressSpace(hostarch.PageSize)
	as.Paged().Map(0, hostarch.PageSize)

	// The second record extends past the end of the address space; the
	// resulting copy error is not a fault and must be propagated.
	bufAddr := hostarch.Addr(hostarch.PageSize - zircon.VmoDirtyRangeSize - 8)
	err := d.QueryDirtyRanges(ctx, as, obj, 0, obj.Size(), bufAddr, 8*zircon.VmoDirtyRangeSize, 0, 0)
	if err != zxerr.OutOfRange {
		t.Errorf("QueryDirtyRanges: got err %v, want %v", err, zxerr.OutOfRange)
	}
}

func TestQueryDirtyRangesValidation(t *testing.T) {
	d := New()
	defer d.OnZeroHandles()
	ctx := context.Background()
	obj := dirtyObject(t)
	as := vmaspace.NewPagedAddressSpace(testASSize)

	if err := d.QueryDirtyRanges(ctx, as, obj, 1, hostarch.PageSize, 0, 0, 0, 0); err != zxerr.InvalidArgs {
		t.Errorf("unaligned offset: got err %v, want %v", err, zxerr.InvalidArgs)
	}
	if err := d.QueryDirtyRanges(ctx, as, obj, 0, obj.Size()+hostarch.PageSize, 0, 0, 0, 0); err != zxerr.OutOfRange {
		t.Errorf("window past end of object: got err %v, want %v", err, zxerr.OutOfRange)
	}
}

func TestQueryDirtyRangesTwoRanges(t *testing.T) {
	d := New()
	defer d.OnZeroHandles()
	ctx := context.Background()
	obj, err := vmo.NewPagedObject(4 * hostarch.PageSize)
	if err != nil {
		t.Fatalf("NewPagedObject: %v", err)
	}
	if err := obj.DirtyPages(ctx, 0, hostarch.PageSize); err != nil {
		t.Fatalf("DirtyPages: %v", err)
	}
	if err := obj.DirtyPages(ctx, 2*hostarch.PageSize, hostarch.PageSize); err != nil {
		t.Fatalf("DirtyPages: %v", err)
	}
	want := []zircon.VmoDirtyRange{
		{Offset: 0, Length: hostarch.PageSize},
		{Offset: 2 * hostarch.PageSize, Length: hostarch.PageSize},
	}

	// Buffer sized for exactly both ranges.
	as := vmaspace.NewPagedAddressSpace(testASSize)
	as.Paged().Map(testBufAddr, 2*zircon.VmoDirtyRangeSize)
	if err := d.QueryDirtyRanges(ctx, as, obj, 0, 4*hostarch.PageSize, testBufAddr, 2*zircon.VmoDirtyRangeSize, testActualAddr, testAvailAddr); err != nil {
		t.Fatalf("QueryDirtyRanges: %v", err)
	}
	if actual, avail := readCounter(as, testActualAddr), readCounter(as, testAvailAddr); actual != 2 || avail != 2 {
		t.Errorf("got actual=%d avail=%d, want 2, 2", actual, avail)
	}
	if diff := cmp.Diff(want, readRecords(as, 2)); diff != "" {
		t.Errorf("dirty ranges mismatch (-want +got):\n%s", diff)
	}

	// Buffer sized for one range, with avail requested.
	as = vmaspace.NewPagedAddressSpace(testASSize)
	as.Paged().Map(testBufAddr, zircon.VmoDirtyRangeSize)
	if err := d.QueryDirtyRanges(ctx, as, obj, 0, 4*hostarch.PageSize, testBufAddr, zircon.VmoDirtyRangeSize, testActualAddr, testAvailAddr); err != nil {
		t.Fatalf("QueryDirtyRanges: %v", err)
	}
	if actual, avail := readCounter(as, testActualAddr), readCounter(as, testAvailAddr); actual != 1 || avail != 2 {
		t.Errorf("got actual=%d avail=%d, want 1, 2", actual, avail)
	}
	if diff := cmp.Diff(want[:1], readRecords(as, 1)); diff != "" {
		t.Errorf("dirty ranges mismatch (-want +got):\n%s", diff)
	}
}

func TestQueryDirtyRangesEmpty(t *testing.T) {
	d := New()
	defer d.OnZeroHandles()
	ctx := context.Background()
	obj, err := vmo.NewPagedObject(16 * hostarch.PageSize)
	if err != nil {
		t.Fatalf("NewPagedObject: %v", err)
	}
	as := vmaspace.NewPagedAddressSpace(testASSize)

	if err := d.QueryDirtyRanges(ctx, as, obj, 0, obj.Size(), testBufAddr, 8*zircon.VmoDirtyRangeSize, testActualAddr, testAvailAddr); err != nil {
		t.Fatalf("QueryDirtyRanges: %v", err)
	}
	actual := readCounter(as, testActualAddr)
	avail := readCounter(as, testAvailAddr)
	if actual != 0 || avail != 0 {
		t.Errorf("got actual=%d avail=%d, want 0, 0", actual, avail)
	}
}
