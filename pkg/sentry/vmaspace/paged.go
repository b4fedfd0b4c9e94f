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

package vmaspace

import (
	"github.com/vsrinivas/fuchsia-sub313/pkg/context"
	"github.com/vsrinivas/fuchsia-sub313/pkg/errors/zxerr"
	"github.com/vsrinivas/fuchsia-sub313/pkg/hostarch"
	"github.com/vsrinivas/fuchsia-sub313/pkg/usermem"
)

// PagedAddressSpace is an AddressSpace backed by usermem.PagedIO: pages start
// unmapped, fault-capturing copies report segmentation faults for them, and
// SoftFault maps the faulting page. It is the address space used by tests and
// by in-process pager clients.
type PagedAddressSpace struct {
	io *usermem.PagedIO
}

// NewPagedAddressSpace returns a PagedAddressSpace covering size bytes.
func NewPagedAddressSpace(size uint64) *PagedAddressSpace {
	return &PagedAddressSpace{io: usermem.NewPagedIO(size)}
}

// IO implements AddressSpace.IO.
func (as *PagedAddressSpace) IO() usermem.IO {
	return as.io
}

// Paged returns the underlying PagedIO.
func (as *PagedAddressSpace) Paged() *usermem.PagedIO {
	return as.io
}

// SoftFault implements AddressSpace.SoftFault.
func (as *PagedAddressSpace) SoftFault(ctx context.Context, addr hostarch.Addr, at hostarch.AccessType) error {
	if uint64(addr) >= as.io.Size() {
		return zxerr.OutOfRange
	}
	as.io.Map(addr.RoundDown(), hostarch.PageSize)
	return nil
}
