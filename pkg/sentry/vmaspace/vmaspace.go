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

// Package vmaspace defines the contract between the pager subsystem and the
// calling thread's address space. The pager only needs two things from an
// address space: user memory IO, and synchronous resolution of page faults
// captured during fault-capturing copies.
package vmaspace

import (
	"github.com/vsrinivas/fuchsia-sub313/pkg/context"
	"github.com/vsrinivas/fuchsia-sub313/pkg/hostarch"
	"github.com/vsrinivas/fuchsia-sub313/pkg/usermem"
)

// AddressSpace is the calling thread's address space.
type AddressSpace interface {
	// IO returns the user memory of the address space.
	IO() usermem.IO

	// SoftFault resolves a page fault at addr for an access of type at,
	// mapping or committing the faulting page synchronously. It may block.
	SoftFault(ctx context.Context, addr hostarch.Addr, at hostarch.AccessType) error
}

// contextID is this package's type for context.Context.Value keys.
type contextID int

const (
	// CtxAddressSpace is a Context.Value key for an AddressSpace.
	CtxAddressSpace contextID = iota
)

// FromContext returns the AddressSpace used by ctx, or nil if no address
// space is active.
func FromContext(ctx context.Context) AddressSpace {
	if v := ctx.Value(CtxAddressSpace); v != nil {
		return v.(AddressSpace)
	}
	return nil
}

// NewContext returns a copy of ctx in which as is the active address space.
func NewContext(ctx context.Context, as AddressSpace) context.Context {
	return context.WithValue(ctx, CtxAddressSpace, as)
}
