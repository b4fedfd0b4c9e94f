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

// Package usermem governs access to user memory.
package usermem

import (
	"fmt"

	"github.com/vsrinivas/fuchsia-sub313/pkg/context"
	"github.com/vsrinivas/fuchsia-sub313/pkg/hostarch"
)

// IO provides access to the memory of a user address space.
type IO interface {
	// CopyOut copies len(src) bytes from src to the memory mapped at addr. It
	// returns the number of bytes copied. If the number of bytes copied is <
	// len(src), it returns a non-nil error explaining why.
	CopyOut(ctx context.Context, addr hostarch.Addr, src []byte, opts IOOpts) (int, error)

	// CopyIn copies len(dst) bytes from the memory mapped at addr to dst.
	// It returns the number of bytes copied. If the number of bytes copied is
	// < len(dst), it returns a non-nil error explaining why.
	CopyIn(ctx context.Context, addr hostarch.Addr, dst []byte, opts IOOpts) (int, error)
}

// IOOpts contains options applicable to all IO methods.
type IOOpts struct {
	// If AddressSpaceActive is true, the IO implementation may assume that
	// the caller's address space is active, and must capture page faults
	// rather than resolving them internally: a copy that faults stops at the
	// fault and returns a SegmentationFault error so that the caller can
	// drive fault resolution itself. If AddressSpaceActive is false, the
	// implementation resolves faults internally (the internal-mappings path)
	// and SegmentationFault is never returned.
	AddressSpaceActive bool
}

// SegmentationFault is returned by fault-capturing copies. It carries the
// faulting address and the access type that faulted, for out-of-band
// resolution by the caller.
type SegmentationFault struct {
	// Addr is the faulting address.
	Addr hostarch.Addr

	// Access is the access type that faulted.
	Access hostarch.AccessType
}

// Error implements error.Error.
func (f SegmentationFault) Error() string {
	return fmt.Sprintf("segmentation fault at %#x (%v)", uint64(f.Addr), f.Access)
}
