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

// Package zircon implements the pager family of Zircon syscalls on top of the
// pager, vmo and port dispatchers.
package zircon

import (
	"github.com/vsrinivas/fuchsia-sub313/pkg/context"
	"github.com/vsrinivas/fuchsia-sub313/pkg/errors/zxerr"
	"github.com/vsrinivas/fuchsia-sub313/pkg/hostarch"
	"github.com/vsrinivas/fuchsia-sub313/pkg/sentry/pager"
	"github.com/vsrinivas/fuchsia-sub313/pkg/sentry/port"
	"github.com/vsrinivas/fuchsia-sub313/pkg/sentry/vmaspace"
	"github.com/vsrinivas/fuchsia-sub313/pkg/sentry/vmo"
)

// PagerCreate implements zx_pager_create.
func PagerCreate(ctx context.Context, options uint32) (*pager.Dispatcher, error) {
	if options != 0 {
		return nil, zxerr.InvalidArgs
	}
	return pager.New(), nil
}

// PagerCreateVmo implements zx_pager_create_vmo: it creates a page source on
// pd delivering to pt under key, and a VMO of the given size backed by it.
func PagerCreateVmo(ctx context.Context, pd *pager.Dispatcher, pt *port.Dispatcher, key uint64, options uint32, size uint64) (*vmo.PagedObject, error) {
	src, err := pd.CreateSource(pt, key, options)
	if err != nil {
		return nil, err
	}
	obj, err := vmo.NewPagedObject(size)
	if err != nil {
		src.Close(ctx)
		return nil, err
	}
	obj.SetSource(src)
	return obj, nil
}

// PagerOp implements zx_pager_op_range.
func PagerOp(ctx context.Context, pd *pager.Dispatcher, op uint32, obj vmo.Object, offset, length, data uint64) error {
	return pd.RangeOp(ctx, op, obj, offset, length, data)
}

// PagerQueryDirtyRanges implements zx_pager_query_dirty_ranges. It requires an
// active address space on ctx for the user buffer copies.
func PagerQueryDirtyRanges(ctx context.Context, pd *pager.Dispatcher, obj vmo.Object, offset, length uint64, bufAddr hostarch.Addr, bufSize uint64, actualAddr, availAddr hostarch.Addr) error {
	as := vmaspace.FromContext(ctx)
	if as == nil {
		return zxerr.BadState
	}
	return pd.QueryDirtyRanges(ctx, as, obj, offset, length, bufAddr, bufSize, actualAddr, availAddr)
}
