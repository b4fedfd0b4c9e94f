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

// Package pager implements the pager dispatcher: the kernel-side object
// behind a pager handle. A dispatcher owns the set of page sources created
// through it, mediates their teardown against handle closure, and implements
// the range operations and dirty range queries that the pager service uses to
// resolve page requests.
package pager

import (
	"fmt"

	"github.com/vsrinivas/fuchsia-sub313/pkg/abi/zircon"
	"github.com/vsrinivas/fuchsia-sub313/pkg/errors/zxerr"
	"github.com/vsrinivas/fuchsia-sub313/pkg/sentry/port"
	"github.com/vsrinivas/fuchsia-sub313/pkg/sync"
)

// Dispatcher is a pager dispatcher.
//
// Lock order: Dispatcher.mu must never be held while acquiring a Proxy's mu;
// OnZeroHandles drops it around each proxy teardown call.
type Dispatcher struct {
	mu sync.Mutex

	// proxies are the live proxies created through this dispatcher.
	proxies proxyList

	// triggeredZeroHandles is set once the last handle to this dispatcher
	// has closed. No sources may be created after that.
	triggeredZeroHandles bool
}

// New creates a Dispatcher.
func New() *Dispatcher {
	return &Dispatcher{}
}

// CreateSource creates a page source whose page requests are delivered to pt
// under the given key. options may contain zircon.VmoTrapDirty; any other bit
// fails with zxerr.InvalidArgs. Fails with zxerr.BadState if the last handle
// to the dispatcher has already closed.
func (d *Dispatcher) CreateSource(pt *port.Dispatcher, key uint64, options uint32) (*Source, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.triggeredZeroHandles {
		// A racing handle closure has already started tearing the
		// dispatcher down.
		return nil, zxerr.BadState
	}
	trapDirty := options&zircon.VmoTrapDirty != 0
	if options&^zircon.VmoTrapDirty != 0 {
		return nil, zxerr.InvalidArgs
	}
	p := &Proxy{
		dispatcher: d,
		port:       pt,
		key:        key,
		trapDirty:  trapDirty,
	}
	src := &Source{proxy: p}
	// Nothing below may return early: the proxy must know its source before
	// it becomes visible in the proxy list, or teardown would find a
	// half-linked pair.
	p.source = src
	d.proxies.pushFront(p)
	return src, nil
}

// releaseProxy removes p from the proxy list and returns it, or returns nil
// if OnZeroHandles already claimed it. The caller that receives a non-nil
// proxy owns its teardown.
func (d *Dispatcher) releaseProxy(p *Proxy) *Proxy {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.proxies.contains(p) {
		if !d.triggeredZeroHandles {
			panic(fmt.Sprintf("pager: proxy %p absent from dispatcher before zero-handles teardown", p))
		}
		return nil
	}
	d.proxies.remove(p)
	return p
}

// OnZeroHandles is invoked exactly once, when the last handle to the
// dispatcher is closed. It tears down all remaining proxies.
func (d *Dispatcher) OnZeroHandles() {
	d.mu.Lock()
	if d.triggeredZeroHandles {
		d.mu.Unlock()
		panic("pager: OnZeroHandles invoked twice")
	}
	d.triggeredZeroHandles = true
	for !d.proxies.empty() {
		p := d.proxies.front()
		d.proxies.remove(p)
		// Drop the lock for the duration of the teardown call: proxy-level
		// locks must not be acquired under the dispatcher lock, and a
		// concurrent Source.Close may need it for releaseProxy.
		d.mu.Unlock()
		p.onDispatcherClose()
		d.mu.Lock()
	}
	d.mu.Unlock()
}

// Empty returns true iff the dispatcher has no live proxies. A dispatcher
// must be Empty by the time its last reference is dropped.
func (d *Dispatcher) Empty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.proxies.empty()
}
