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
	"time"

	"github.com/vsrinivas/fuchsia-sub313/pkg/abi/zircon"
	"github.com/vsrinivas/fuchsia-sub313/pkg/context"
	"github.com/vsrinivas/fuchsia-sub313/pkg/errors/zxerr"
	"github.com/vsrinivas/fuchsia-sub313/pkg/log"
	"github.com/vsrinivas/fuchsia-sub313/pkg/sentry/port"
	"github.com/vsrinivas/fuchsia-sub313/pkg/sync"
)

// droppedPacketLog rate-limits complaints about page request packets that
// could not be delivered, which otherwise repeat for every faulting thread.
var droppedPacketLog = log.BasicRateLimitedLogger(30 * time.Second)

// Proxy forwards page requests from one page source to a port. A Proxy and
// its Source reference each other; the cycle is broken by onDispatcherClose
// (dispatcher handle closed) or by Source.Close (owning VMO destroyed),
// whichever runs first.
type Proxy struct {
	// entry links the proxy into its dispatcher's proxy list.
	entry proxyEntry

	// dispatcher, port, key and trapDirty are immutable after creation.
	dispatcher *Dispatcher
	port       *port.Dispatcher
	key        uint64
	trapDirty  bool

	mu sync.Mutex

	// source is the linked page source, nil once the link is severed.
	source *Source

	// closed is set by whichever teardown path runs first; page requests
	// fail with zxerr.BadState afterwards.
	closed bool
}

// sendRequest queues one page request packet to the proxy's port.
func (p *Proxy) sendRequest(ctx context.Context, cmd uint16, offset, length uint64) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return zxerr.BadState
	}
	p.mu.Unlock()
	pkt := port.Packet{
		Key:  p.key,
		Type: zircon.PacketTypePageRequest,
		PageRequest: zircon.PacketPageRequest{
			Command: cmd,
			Offset:  offset,
			Length:  length,
		},
	}
	if err := p.port.Queue(pkt); err != nil {
		droppedPacketLog.Warningf("pager proxy (key %#x): dropping %d page request packet: %v", p.key, cmd, err)
		return err
	}
	return nil
}

// sendComplete queues the COMPLETE packet that tells the pager service no
// further requests will arrive for this source. Delivery failures are
// ignored; the receiver is already gone.
func (p *Proxy) sendComplete(ctx context.Context) {
	pkt := port.Packet{
		Key:  p.key,
		Type: zircon.PacketTypePageRequest,
		PageRequest: zircon.PacketPageRequest{
			Command: zircon.PagerVmoComplete,
		},
	}
	if err := p.port.Queue(pkt); err != nil {
		ctx.Debugf("pager proxy (key %#x): dropping COMPLETE packet: %v", p.key, err)
	}
}

// onDispatcherClose severs the proxy/source link and cancels undelivered
// packets. Called by Dispatcher.OnZeroHandles with the dispatcher lock
// released; the proxy has already been removed from the proxy list.
func (p *Proxy) onDispatcherClose() {
	p.mu.Lock()
	src := p.source
	p.source = nil
	p.closed = true
	p.mu.Unlock()
	if src != nil {
		src.severProxy()
	}
	p.port.CancelKey(p.key)
}

// onSourceClose marks the proxy closed on the VMO-destruction path. Called by
// Source.Close after it has won releaseProxy.
func (p *Proxy) onSourceClose() {
	p.mu.Lock()
	p.source = nil
	p.closed = true
	p.mu.Unlock()
	p.port.CancelKey(p.key)
}
