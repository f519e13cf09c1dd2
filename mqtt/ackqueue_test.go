// Copyright (c) clearwater-iot contributors.
// Licensed under the MIT License.
package mqtt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAckQueuePreservesOrder(t *testing.T) {
	q := newAckQueue()
	t.Cleanup(q.stop)

	const n = 5
	var order []int
	acked := make(chan struct{})

	readyFns := make([]func(), n)
	for i := range n {
		i := i
		readyFns[i] = q.enqueue(func() {
			order = append(order, i)
			if i == n-1 {
				close(acked)
			}
		})
	}

	// Mark ready in reverse order; the queue must still ack in arrival order.
	for i := n - 1; i >= 0; i-- {
		readyFns[i]()
	}

	select {
	case <-acked:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for acks")
	}

	expected := make([]int, n)
	for i := range expected {
		expected[i] = i
	}
	require.Equal(t, expected, order)
}

func TestAckQueueStopDropsPending(t *testing.T) {
	q := newAckQueue()

	called := make(chan struct{}, 1)
	ready := q.enqueue(func() { called <- struct{}{} })

	q.stop()
	ready()

	select {
	case <-called:
		t.Fatal("ack fired after stop")
	case <-time.After(100 * time.Millisecond):
	}
}
