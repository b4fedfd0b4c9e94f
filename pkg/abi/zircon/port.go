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

// Port packet types, from zircon/syscalls/port.h. Only the page request type
// is modeled here.
const (
	PacketTypePageRequest uint32 = 9
)

// Page request commands carried by PacketPageRequest.
const (
	PagerVmoRead     uint16 = 0
	PagerVmoComplete uint16 = 1
	PagerVmoDirty    uint16 = 2
)

// PacketPageRequest is the payload of a page request port packet
// (zx_packet_page_request_t).
type PacketPageRequest struct {
	Command uint16
	Flags   uint16
	// Reserved0 must be zero.
	Reserved0 uint32
	Offset    uint64
	Length    uint64
	// Reserved1 must be zero.
	Reserved1 uint64
}
