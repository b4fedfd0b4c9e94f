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

// proxyEntry is the intrusive list node embedded in Proxy. The list pointer
// doubles as the containment check that makes proxy removal idempotent.
//
// All fields are guarded by the owning Dispatcher's mu.
type proxyEntry struct {
	next *Proxy
	prev *Proxy
	list *proxyList
}

// proxyList is an intrusive doubly-linked list of proxies. Entries can be
// added and removed in O(1) with no allocation.
//
// The zero value is an empty list ready for use.
type proxyList struct {
	head *Proxy
	tail *Proxy
}

// empty returns true iff the list holds no proxies.
func (l *proxyList) empty() bool {
	return l.head == nil
}

// front returns the first proxy in the list, or nil.
func (l *proxyList) front() *Proxy {
	return l.head
}

// contains returns true iff p is currently in l.
func (l *proxyList) contains(p *Proxy) bool {
	return p.entry.list == l
}

// pushFront inserts p at the front of l.
//
// Preconditions: p is not in any list.
func (l *proxyList) pushFront(p *Proxy) {
	p.entry.next = l.head
	p.entry.prev = nil
	if l.head != nil {
		l.head.entry.prev = p
	} else {
		l.tail = p
	}
	l.head = p
	p.entry.list = l
}

// remove removes p from l.
//
// Preconditions: l.contains(p).
func (l *proxyList) remove(p *Proxy) {
	if p.entry.prev != nil {
		p.entry.prev.entry.next = p.entry.next
	} else {
		l.head = p.entry.next
	}
	if p.entry.next != nil {
		p.entry.next.entry.prev = p.entry.prev
	} else {
		l.tail = p.entry.prev
	}
	p.entry.next = nil
	p.entry.prev = nil
	p.entry.list = nil
}
