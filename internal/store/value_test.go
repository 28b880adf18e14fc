package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_GetSet(t *testing.T) {
	v := New(1)
	assert.Equal(t, 1, v.Get())

	v.Set(2)
	assert.Equal(t, 2, v.Get())

	got := v.Update(func(n int) int { return n * 10 })
	assert.Equal(t, 20, got)
	assert.Equal(t, 20, v.Get())
}

func TestValue_SubscribeReceivesCurrent(t *testing.T) {
	v := New("idle")
	ch, cancel := v.Subscribe()
	defer cancel()

	select {
	case got := <-ch:
		assert.Equal(t, "idle", got)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive current value")
	}
}

func TestValue_LatestWins(t *testing.T) {
	v := New(0)
	ch, cancel := v.Subscribe()
	defer cancel()

	// Never read in between: only the newest value must remain.
	for i := 1; i <= 100; i++ {
		v.Set(i)
	}

	select {
	case got := <-ch:
		assert.Equal(t, 100, got)
	case <-time.After(time.Second):
		t.Fatal("no value delivered")
	}

	select {
	case got := <-ch:
		t.Fatalf("unexpected extra value %d", got)
	default:
	}
}

func TestValue_CancelClosesChannel(t *testing.T) {
	v := New(0)
	ch, cancel := v.Subscribe()
	<-ch

	cancel()
	cancel() // second call is a no-op

	_, ok := <-ch
	assert.False(t, ok)

	// Setting after cancel must not panic on the closed channel.
	v.Set(5)
	assert.Equal(t, 5, v.Get())
}

func TestValue_ConcurrentWriters(t *testing.T) {
	v := New(0)
	ch, cancel := v.Subscribe()
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v.Update(func(n int) int { return n + 1 })
		}()
	}
	wg.Wait()

	require.Equal(t, 50, v.Get())

	var last int
	for {
		select {
		case last = <-ch:
			continue
		default:
		}
		break
	}
	assert.Equal(t, 50, last)
}
