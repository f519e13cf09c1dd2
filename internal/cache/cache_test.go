// Copyright (c) clearwater-iot contributors.
// Licensed under the MIT License.
package cache_test

import (
	"sync"
	"testing"
	"time"

	"github.com/clearwater-iot/mqttrpc/internal/cache"
	"github.com/clearwater-iot/mqttrpc/internal/mqtt"
	"github.com/stretchr/testify/require"
)

func request(correlationData, topic string, expiry uint32) *mqtt.Message {
	return &mqtt.Message{
		Topic: topic,
		PublishOptions: mqtt.PublishOptions{
			CorrelationData: []byte(correlationData),
			MessageExpiry:   expiry,
		},
	}
}

func response(payload string) *mqtt.Message {
	return &mqtt.Message{Payload: []byte(payload)}
}

func TestDuplicateRequestSingleFlights(t *testing.T) {
	c := cache.New(time.Minute)
	req := request("corr1", "topic/a", 60)

	var calls int
	var mu sync.Mutex
	block := make(chan struct{})
	started := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(2)

	var res1, res2 *mqtt.Message
	go func() {
		defer wg.Done()
		res1, _ = c.Exec(req, func() (*mqtt.Message, error) {
			mu.Lock()
			calls++
			mu.Unlock()
			close(started)
			<-block
			return response("ok"), nil
		})
	}()

	<-started

	go func() {
		defer wg.Done()
		res2, _ = c.Exec(req, func() (*mqtt.Message, error) {
			mu.Lock()
			calls++
			mu.Unlock()
			return response("other"), nil
		})
	}()

	close(block)
	wg.Wait()

	require.Equal(t, 1, calls)
	require.Equal(t, res1, res2)
}

func TestReplayAfterCompletion(t *testing.T) {
	c := cache.New(time.Minute)
	req := request("corr2", "topic/a", 60)

	var calls int
	cb := func() (*mqtt.Message, error) {
		calls++
		return response("ok"), nil
	}

	res1, err := c.Exec(req, cb)
	require.NoError(t, err)

	res2, err := c.Exec(req, cb)
	require.NoError(t, err)

	require.Equal(t, 1, calls)
	require.Equal(t, res1, res2)
}

func TestExpiredRequestReExecutesWithoutReplayTTL(t *testing.T) {
	// With no replay TTL, an entry only lives as long as its own
	// message-expiry, which is zero here, so it expires as soon as
	// processing completes and a later duplicate is treated as new.
	c := cache.New(0)
	req := request("corr3", "topic/a", 0)

	calls := 0
	res, err := c.Exec(req, func() (*mqtt.Message, error) {
		calls++
		return response("ok"), nil
	})
	require.NoError(t, err)
	require.NotNil(t, res)

	time.Sleep(5 * time.Millisecond)

	res, err = c.Exec(req, func() (*mqtt.Message, error) {
		calls++
		return response("ok"), nil
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, 2, calls)
}

func TestDistinctTopicsDoNotCollide(t *testing.T) {
	c := cache.New(time.Minute)
	reqA := request("same-corr", "topic/a", 60)
	reqB := request("same-corr", "topic/b", 60)

	callsA, callsB := 0, 0
	_, _ = c.Exec(reqA, func() (*mqtt.Message, error) {
		callsA++
		return response("a"), nil
	})
	_, _ = c.Exec(reqB, func() (*mqtt.Message, error) {
		callsB++
		return response("b"), nil
	})

	require.Equal(t, 1, callsA)
	require.Equal(t, 1, callsB)
}
