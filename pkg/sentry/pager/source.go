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
	"github.com/vsrinivas/fuchsia-sub313/pkg/context"
	"github.com/vsrinivas/fuchsia-sub313/pkg/errors/zxerr"
	"github.com/vsrinivas/fuchsia-sub313/pkg/sync"
)

// Source is the page source created by Dispatcher.CreateSource. It is
// attached to a VMO as its vmo.PageRequestSource and forwards the VMO's page
// requests through its proxy.
type Source struct {
	mu sync.Mutex

	// proxy is the linked proxy, nil once the link is severed by either
	// teardown path.
	proxy *Proxy

	// detached is set once the COMPLETE packet has been sent; further page
	// requests fail with zxerr.BadState.
	detached bool

	// closed is set by Close and makes Close idempotent.
	closed bool
}

// SendAsyncRequest implements vmo.PageRequestSource.SendAsyncRequest.
func (s *Source) SendAsyncRequest(ctx context.Context, cmd uint16, offset, length uint64) error {
	s.mu.Lock()
	p := s.proxy
	detached := s.detached
	s.mu.Unlock()
	if p == nil || detached {
		return zxerr.BadState
	}
	return p.sendRequest(ctx, cmd, offset, length)
}

// TrapDirty implements vmo.PageRequestSource.TrapDirty.
func (s *Source) TrapDirty() bool {
	s.mu.Lock()
	p := s.proxy
	s.mu.Unlock()
	return p != nil && p.trapDirty
}

// Detach stops request generation and notifies the pager service with a
// COMPLETE packet. Detaching twice is a no-op.
func (s *Source) Detach(ctx context.Context) {
	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		return
	}
	s.detached = true
	p := s.proxy
	s.mu.Unlock()
	if p != nil {
		p.sendComplete(ctx)
	}
}

// Close tears the source down on the VMO-destruction path: it detaches if
// needed, then removes the proxy from the dispatcher. If the dispatcher's
// zero-handles teardown got there first, the proxy is already gone and there
// is nothing left to do.
func (s *Source) Close(ctx context.Context) {
	s.Detach(ctx)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	p := s.proxy
	s.proxy = nil
	s.mu.Unlock()
	if p == nil {
		return
	}
	if released := p.dispatcher.releaseProxy(p); released != nil {
		released.onSourceClose()
	}
}

// severProxy breaks the source half of the proxy/source cycle. Called by
// Proxy.onDispatcherClose.
func (s *Source) severProxy() {
	s.mu.Lock()
	s.proxy = nil
	s.mu.Unlock()
}
