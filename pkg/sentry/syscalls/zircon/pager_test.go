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
	"testing"

	"github.com/vsrinivas/fuchsia-sub313/pkg/abi/zircon"
	"github.com/vsrinivas/fuchsia-sub313/pkg/context"
	"github.com/vsrinivas/fuchsia-sub313/pkg/errors/zxerr"
	"github.com/vsrinivas/fuchsia-sub313/pkg/hostarch"
	"github.com/vsrinivas/fuchsia-sub313/pkg/sentry/port"
	"github.com/vsrinivas/fuchsia-sub313/pkg/sentry/vmaspace"
)

func TestPagerCreate(t *testing.T) {
	ctx := context.Background()
	pd, err := PagerCreate(ctx, 0)
	if err != nil {
		t.Fatalf("PagerCreate: %v", err)
	}
	pd.OnZeroHandles()

	if _, err := PagerCreate(ctx, 1); err != zxerr.InvalidArgs {
		t.Errorf("PagerCreate(options=1): got err %v, want %v", err, zxerr.InvalidArgs)
	}
}

func TestPagerVmoLifecycle(t *testing.T) {
	ctx := context.Background()
	pd, err := PagerCreate(ctx, 0)
	if err != nil {
		t.Fatalf("PagerCreate: %v", err)
	}
	defer pd.OnZeroHandles()
	pt := port.New()
	const key = 11
	obj, err := PagerCreateVmo(ctx, pd, pt, key, 0, 8*hostarch.PageSize)
	if err != nil {
		t.Fatalf("PagerCreateVmo: %v", err)
	}

	// A page request on the VMO reaches the port, and supplying the pages
	// resolves it.
	req, err := obj.RequirePages(ctx, 0, hostarch.PageSize)
	if err != nil {
		t.Fatalf("RequirePages: %v", err)
	}
	pkt, err := pt.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if pkt.Key != key || pkt.PageRequest.Command != zircon.PagerVmoRead {
		t.Fatalf("got packet %+v, want a READ request under key %d", pkt, key)
	}
	if err := obj.SupplyPages(ctx, pkt.PageRequest.Offset, pkt.PageRequest.Length); err != nil {
		t.Fatalf("SupplyPages: %v", err)
	}
	if err := req.Wait(ctx); err != nil {
		t.Errorf("Wait: %v", err)
	}
}

func TestPagerOpRoundTrip(t *testing.T) {
	ctx := context.Background()
	pd, err := PagerCreate(ctx, 0)
	if err != nil {
		t.Fatalf("PagerCreate: %v", err)
	}
	defer pd.OnZeroHandles()
	obj, err := PagerCreateVmo(ctx, pd, port.New(), 1, 0, 8*hostarch.PageSize)
	if err != nil {
		t.Fatalf("PagerCreateVmo: %v", err)
	}

	if err := PagerOp(ctx, pd, zircon.PagerOpDirty, obj, 0, hostarch.PageSize, 0); err != nil {
		t.Fatalf("PagerOp(DIRTY): %v", err)
	}
	if err := PagerOp(ctx, pd, zircon.PagerOpWritebackBegin, obj, 0, hostarch.PageSize, 0); err != nil {
		t.Fatalf("PagerOp(WRITEBACK_BEGIN): %v", err)
	}
	if err := PagerOp(ctx, pd, zircon.PagerOpWritebackEnd, obj, 0, hostarch.PageSize, 0); err != nil {
		t.Fatalf("PagerOp(WRITEBACK_END): %v", err)
	}
}

func TestPagerQueryDirtyRanges(t *testing.T) {
	pd, err := PagerCreate(context.Background(), 0)
	if err != nil {
		t.Fatalf("PagerCreate: %v", err)
	}
	defer pd.OnZeroHandles()
	obj, err := PagerCreateVmo(context.Background(), pd, port.New(), 1, 0, 8*hostarch.PageSize)
	if err != nil {
		t.Fatalf("PagerCreateVmo: %v", err)
	}
	if err := obj.DirtyPages(context.Background(), 0, 2*hostarch.PageSize); err != nil {
		t.Fatalf("DirtyPages: %v", err)
	}

	// Without an active address space the query has nowhere to copy to.
	err = PagerQueryDirtyRanges(context.Background(), pd, obj, 0, obj.Size(), 0, 0, 0, 0)
	if err != zxerr.BadState {
		t.Fatalf("PagerQueryDirtyRanges without address space: got err %v, want %v", err, zxerr.BadState)
	}

	as := vmaspace.NewPagedAddressSpace(16 * hostarch.PageSize)
	ctx := vmaspace.NewContext(context.Background(), as)
	const bufAddr hostarch.Addr = hostarch.PageSize
	const availAddr hostarch.Addr = 8 * hostarch.PageSize
	as.Paged().Map(bufAddr, 4*zircon.VmoDirtyRangeSize)
	if err := PagerQueryDirtyRanges(ctx, pd, obj, 0, obj.Size(), bufAddr, 4*zircon.VmoDirtyRangeSize, 0, availAddr); err != nil {
		t.Fatalf("PagerQueryDirtyRanges: %v", err)
	}
	if avail := hostarch.ByteOrder.Uint64(as.Paged().Bytes()[availAddr:]); avail != 1 {
		t.Errorf("avail: got %d, want 1", avail)
	}
	var rec zircon.VmoDirtyRange
	rec.UnmarshalBytes(as.Paged().Bytes()[bufAddr:])
	want := zircon.VmoDirtyRange{Offset: 0, Length: 2 * hostarch.PageSize}
	if rec != want {
		t.Errorf("record: got %+v, want %+v", rec, want)
	}
}
