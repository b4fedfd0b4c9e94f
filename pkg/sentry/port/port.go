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

// Package port implements the notification sink that pager proxies deliver
// page request packets to. It models the small slice of a port dispatcher
// that the pager needs: keyed packet delivery, blocking dequeue, and
// cancellation by key.
package port

import (
	"github.com/vsrinivas/fuchsia-sub313/pkg/abi/zircon"
	"github.com/vsrinivas/fuchsia-sub313/pkg/context"
	"github.com/vsrinivas/fuchsia-sub313/pkg/errors/zxerr"
	"github.com/vsrinivas/fuchsia-sub313/pkg/sync"
)

// Packet is a queued port packet.
type Packet struct {
	// Key is the observer key the packet was queued under.
	Key uint64

	// Type is the packet type (zircon.PacketType*).
	Type uint32

	// PageRequest is the payload for PacketTypePageRequest packets.
	PageRequest zircon.PacketPageRequest
}

// Dispatcher is a port. The zero value is not usable; call New.
type Dispatcher struct {
	mu     sync.Mutex
	queue  []Packet
	closed bool

	// wakeup has capacity 1 and carries "the queue may be non-empty or the
	// port may be closed" edges to blocked Dequeue callers.
	wakeup chan struct{}
}

// New creates a new port.
func New() *Dispatcher {
	return &Dispatcher{wakeup: make(chan struct{}, 1)}
}

// Queue delivers a packet to the port.
func (d *Dispatcher) Queue(pkt Packet) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return zxerr.BadHandle
	}
	d.queue = append(d.queue, pkt)
	d.mu.Unlock()
	d.notify()
	return nil
}

// Dequeue removes and returns the oldest queued packet, blocking until one is
// available. It fails with zxerr.Canceled if ctx is done first, and
// zxerr.BadHandle if the port is closed.
func (d *Dispatcher) Dequeue(ctx context.Context) (Packet, error) {
	for {
		d.mu.Lock()
		if len(d.queue) > 0 {
			pkt := d.queue[0]
			d.queue = d.queue[1:]
			more := len(d.queue) > 0
			d.mu.Unlock()
			if more {
				d.notify()
			}
			return pkt, nil
		}
		if d.closed {
			d.mu.Unlock()
			return Packet{}, zxerr.BadHandle
		}
		d.mu.Unlock()

		select {
		case <-d.wakeup:
		case <-ctx.Done():
			return Packet{}, zxerr.Canceled
		}
	}
}

// TryDequeue removes and returns the oldest queued packet without blocking.
func (d *Dispatcher) TryDequeue() (Packet, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) == 0 {
		return Packet{}, false
	}
	pkt := d.queue[0]
	d.queue = d.queue[1:]
	return pkt, true
}

// CancelKey removes all queued packets delivered under key and returns how
// many were removed.
func (d *Dispatcher) CancelKey(key uint64) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	kept := d.queue[:0]
	removed := 0
	for _, pkt := range d.queue {
		if pkt.Key == key {
			removed++
			continue
		}
		kept = append(kept, pkt)
	}
	d.queue = kept
	return removed
}

// Close closes the port. Queued packets are dropped and blocked Dequeue
// callers are woken.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.queue = nil
	d.mu.Unlock()
	d.notify()
}

func (d *Dispatcher) notify() {
	select {
	case d.wakeup <- struct{}{}:
	default:
	}
}
