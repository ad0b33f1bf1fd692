// Package surface tracks the UI surfaces (windows) connected to glint and
// fans notifications out to them.
package surface

import (
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/adamancini/glint/internal/metrics"
	"github.com/adamancini/glint/internal/types"
)

// DefaultQueueSize is the number of undelivered messages a surface buffers
const DefaultQueueSize = 64

// Message is a notification pushed to a surface
type Message struct {
	Channel types.Channel
	Payload interface{}
}

// Surface is one open window. Messages queue in a bounded outbox that the
// transport drains.
type Surface struct {
	id     string
	outbox chan Message
	closed chan struct{}
	once   sync.Once
}

func newSurface(queueSize int) *Surface {
	return &Surface{
		id:     uuid.NewString(),
		outbox: make(chan Message, queueSize),
		closed: make(chan struct{}),
	}
}

// ID returns the surface id
func (s *Surface) ID() string {
	return s.id
}

// Outbox returns the queue of pending messages
func (s *Surface) Outbox() <-chan Message {
	return s.outbox
}

// Done is closed once the surface is closed
func (s *Surface) Done() <-chan struct{} {
	return s.closed
}

// Send queues msg without blocking. It reports false when the surface is
// closed or its queue is full.
func (s *Surface) Send(msg Message) bool {
	select {
	case <-s.closed:
		return false
	default:
	}

	select {
	case s.outbox <- msg:
		return true
	default:
		return false
	}
}

func (s *Surface) close() {
	s.once.Do(func() { close(s.closed) })
}

// Registry holds the open surfaces
type Registry struct {
	mu        sync.RWMutex
	surfaces  []*Surface
	queueSize int
	metrics   *metrics.Metrics
}

// NewRegistry creates an empty registry. m may be nil.
func NewRegistry(queueSize int, m *metrics.Metrics) *Registry {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Registry{
		queueSize: queueSize,
		metrics:   m,
	}
}

// Register opens a new surface
func (r *Registry) Register() *Surface {
	s := newSurface(r.queueSize)

	r.mu.Lock()
	r.surfaces = append(r.surfaces, s)
	r.mu.Unlock()

	r.metrics.SurfaceOpened()
	log.Debugf("surface %s opened", s.id)
	return s
}

// Unregister closes and forgets the surface with the given id. Unknown ids
// are ignored.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	var found *Surface
	for i, s := range r.surfaces {
		if s.id == id {
			found = s
			r.surfaces = append(r.surfaces[:i:i], r.surfaces[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	if found == nil {
		return
	}
	found.close()
	r.metrics.SurfaceClosed()
	log.Debugf("surface %s closed", id)
}

// Surfaces returns a snapshot of the open surfaces in the order they opened
func (r *Registry) Surfaces() []*Surface {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Surface(nil), r.surfaces...)
}

// Len returns the number of open surfaces
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.surfaces)
}

// Broadcast queues a message on every surface open right now and returns how
// many accepted it. Surfaces with a full queue miss the message.
func (r *Registry) Broadcast(channel types.Channel, payload interface{}) int {
	msg := Message{Channel: channel, Payload: payload}

	delivered := 0
	for _, s := range r.Surfaces() {
		if s.Send(msg) {
			delivered++
			continue
		}
		r.metrics.DeliveryDropped()
		log.WithField("channel", channel).Warnf("dropped notification for surface %s", s.id)
	}

	r.metrics.Broadcast(channel.String(), delivered)
	return delivered
}

// Close closes every open surface
func (r *Registry) Close() {
	for _, s := range r.Surfaces() {
		r.Unregister(s.id)
	}
}
