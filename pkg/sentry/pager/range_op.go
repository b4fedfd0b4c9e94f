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
	"math"

	"github.com/vsrinivas/fuchsia-sub313/pkg/abi/zircon"
	"github.com/vsrinivas/fuchsia-sub313/pkg/context"
	"github.com/vsrinivas/fuchsia-sub313/pkg/errors"
	"github.com/vsrinivas/fuchsia-sub313/pkg/errors/zxerr"
	"github.com/vsrinivas/fuchsia-sub313/pkg/sentry/vmo"
)

// RangeOp applies one pager range operation to [offset, offset+length) of
// obj. data is operation-specific: the failure status code for
// zircon.PagerOpFail, and must be zero for all other operations. Errors from
// obj are propagated verbatim.
func (d *Dispatcher) RangeOp(ctx context.Context, op uint32, obj vmo.Object, offset, length, data uint64) error {
	switch op {
	case zircon.PagerOpFail:
		signed := int64(data)
		if signed < math.MinInt32 || signed > math.MaxInt32 {
			return zxerr.InvalidArgs
		}
		pageErr, ok := externalFailureError(zircon.Status(signed))
		if !ok {
			return zxerr.InvalidArgs
		}
		return obj.FailPageRequests(ctx, offset, length, pageErr)
	case zircon.PagerOpDirty:
		if data != 0 {
			return zxerr.InvalidArgs
		}
		return obj.DirtyPages(ctx, offset, length)
	case zircon.PagerOpWritebackBegin:
		if data != 0 {
			return zxerr.InvalidArgs
		}
		return obj.WritebackBegin(ctx, offset, length)
	case zircon.PagerOpWritebackEnd:
		if data != 0 {
			return zxerr.InvalidArgs
		}
		return obj.WritebackEnd(ctx, offset, length)
	default:
		return zxerr.NotSupported
	}
}

// externalFailureError returns the error value for a status code that the
// pager service may fail page requests with. Codes outside this set are
// rejected so that a buggy service cannot make arbitrary statuses appear on
// faulting threads.
func externalFailureError(s zircon.Status) (*errors.Error, bool) {
	switch s {
	case zircon.ErrIO, zircon.ErrIODataIntegrity, zircon.ErrBadState, zircon.ErrNoSpace, zircon.ErrBufferTooSmall:
		return zxerr.FromStatus(s)
	}
	return nil, false
}
