package surface

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adamancini/glint/internal/metrics"
	"github.com/adamancini/glint/internal/types"
)

func TestRegistry_RegisterUnregister(t *testing.T) {
	r := NewRegistry(0, nil)
	assert.Equal(t, DefaultQueueSize, r.queueSize)

	a := r.Register()
	b := r.Register()
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, 2, r.Len())

	assert.Equal(t, []*Surface{a, b}, r.Surfaces())

	r.Unregister(a.ID())
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, []*Surface{b}, r.Surfaces())

	select {
	case <-a.Done():
	default:
		t.Fatal("unregistered surface should be closed")
	}

	r.Unregister("unknown")
	assert.Equal(t, []*Surface{b}, r.Surfaces())
}

func TestRegistry_BroadcastFanOut(t *testing.T) {
	tests := []struct {
		name     string
		surfaces int
	}{
		{name: "no surfaces", surfaces: 0},
		{name: "one surface", surfaces: 1},
		{name: "three surfaces", surfaces: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(4, nil)
			var opened []*Surface
			for i := 0; i < tt.surfaces; i++ {
				opened = append(opened, r.Register())
			}

			payload := map[string]int{"percent": 50}
			delivered := r.Broadcast(types.ChannelUpdateDownloadProgress, payload)
			assert.Equal(t, tt.surfaces, delivered)

			for _, s := range opened {
				require.Len(t, s.Outbox(), 1)
				msg := <-s.Outbox()
				assert.Equal(t, types.ChannelUpdateDownloadProgress, msg.Channel)
				assert.Equal(t, payload, msg.Payload)
			}
		})
	}
}

func TestRegistry_BroadcastSnapshot(t *testing.T) {
	r := NewRegistry(4, nil)
	early := r.Register()
	closed := r.Register()
	r.Unregister(closed.ID())

	r.Broadcast(types.ChannelUpdateDownloaded, nil)
	late := r.Register()

	assert.Len(t, early.Outbox(), 1)
	assert.Len(t, closed.Outbox(), 0, "closed surfaces miss the event")
	assert.Len(t, late.Outbox(), 0, "late surfaces are not replayed")
}

func TestRegistry_BroadcastDropsWhenFull(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRegistry(1, metrics.New(reg))
	slow := r.Register()
	fast := r.Register()

	assert.Equal(t, 2, r.Broadcast(types.ChannelUpdateError, "first"))
	<-fast.Outbox()

	assert.Equal(t, 1, r.Broadcast(types.ChannelUpdateError, "second"))

	msg := <-slow.Outbox()
	assert.Equal(t, "first", msg.Payload)
	msg = <-fast.Outbox()
	assert.Equal(t, "second", msg.Payload)

	expected := `
# HELP glint_surface_dropped_total Notifications dropped because a surface queue was full
# TYPE glint_surface_dropped_total counter
glint_surface_dropped_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "glint_surface_dropped_total"))
}

func TestSurface_SendAfterClose(t *testing.T) {
	r := NewRegistry(1, nil)
	s := r.Register()
	r.Unregister(s.ID())

	assert.False(t, s.Send(Message{Channel: types.ChannelUpdateDownloaded}))
}

func TestRegistry_ConcurrentBroadcast(t *testing.T) {
	r := NewRegistry(1000, nil)
	s := r.Register()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Broadcast(types.ChannelUpdateDownloadProgress, i)
		}()
		go func() {
			defer wg.Done()
			other := r.Register()
			r.Unregister(other.ID())
		}()
	}
	wg.Wait()

	assert.Len(t, s.Outbox(), 100)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Close(t *testing.T) {
	r := NewRegistry(1, nil)
	a := r.Register()
	r.Register()

	r.Close()
	assert.Zero(t, r.Len())
	<-a.Done()
}
