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

package port

import (
	"testing"
	"time"

	"github.com/vsrinivas/fuchsia-sub313/pkg/abi/zircon"
	"github.com/vsrinivas/fuchsia-sub313/pkg/context"
	"github.com/vsrinivas/fuchsia-sub313/pkg/errors/zxerr"
)

func TestQueueDequeueOrder(t *testing.T) {
	d := New()
	ctx := context.Background()
	for key := uint64(0); key < 5; key++ {
		if err := d.Queue(Packet{Key: key, Type: zircon.PacketTypePageRequest}); err != nil {
			t.Fatalf("Queue: %v", err)
		}
	}
	for key := uint64(0); key < 5; key++ {
		pkt, err := d.Dequeue(ctx)
		if err != nil {
			t.Fatalf("Dequeue: %v", err)
		}
		if pkt.Key != key {
			t.Errorf("Dequeue: got key %d, want %d", pkt.Key, key)
		}
	}
	if pkt, ok := d.TryDequeue(); ok {
		t.Errorf("TryDequeue on empty port: unexpected packet %+v", pkt)
	}
}

func TestDequeueBlocks(t *testing.T) {
	d := New()
	ctx := context.Background()
	got := make(chan Packet, 1)
	errs := make(chan error, 1)
	go func() {
		pkt, err := d.Dequeue(ctx)
		if err != nil {
			errs <- err
			return
		}
		got <- pkt
	}()
	// Give the dequeuer time to block.
	time.Sleep(10 * time.Millisecond)
	if err := d.Queue(Packet{Key: 7}); err != nil {
		t.Fatalf("Queue: %v", err)
	}
	select {
	case pkt := <-got:
		if pkt.Key != 7 {
			t.Errorf("Dequeue: got key %d, want 7", pkt.Key)
		}
	case err := <-errs:
		t.Fatalf("Dequeue: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("Dequeue did not wake after Queue")
	}
}

func TestDequeueCanceled(t *testing.T) {
	d := New()
	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := d.Dequeue(ctx)
		errs <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case err := <-errs:
		if err != zxerr.Canceled {
			t.Errorf("Dequeue: got err %v, want %v", err, zxerr.Canceled)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Dequeue did not wake on cancellation")
	}
}

func TestCancelKey(t *testing.T) {
	d := New()
	for _, key := range []uint64{1, 2, 1, 3, 1} {
		if err := d.Queue(Packet{Key: key}); err != nil {
			t.Fatalf("Queue: %v", err)
		}
	}
	if removed := d.CancelKey(1); removed != 3 {
		t.Errorf("CancelKey: removed %d packets, want 3", removed)
	}
	var keys []uint64
	for {
		pkt, ok := d.TryDequeue()
		if !ok {
			break
		}
		keys = append(keys, pkt.Key)
	}
	if len(keys) != 2 || keys[0] != 2 || keys[1] != 3 {
		t.Errorf("remaining keys: got %v, want [2 3]", keys)
	}
}

func TestClose(t *testing.T) {
	d := New()
	ctx := context.Background()
	if err := d.Queue(Packet{Key: 1}); err != nil {
		t.Fatalf("Queue: %v", err)
	}
	d.Close()
	if err := d.Queue(Packet{Key: 2}); err != zxerr.BadHandle {
		t.Errorf("Queue on closed port: got err %v, want %v", err, zxerr.BadHandle)
	}
	if _, err := d.Dequeue(ctx); err != zxerr.BadHandle {
		t.Errorf("Dequeue on closed port: got err %v, want %v", err, zxerr.BadHandle)
	}
}

func TestCloseWakesDequeue(t *testing.T) {
	d := New()
	ctx := context.Background()
	errs := make(chan error, 1)
	go func() {
		_, err := d.Dequeue(ctx)
		errs <- err
	}()
	time.Sleep(10 * time.Millisecond)
	d.Close()
	select {
	case err := <-errs:
		if err != zxerr.BadHandle {
			t.Errorf("Dequeue: got err %v, want %v", err, zxerr.BadHandle)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Dequeue did not wake on Close")
	}
}
