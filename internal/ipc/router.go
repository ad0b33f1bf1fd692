// Package ipc is the bridge between UI surfaces and the glint backend. It
// serves request/response invocations over HTTP and WebSocket and pushes
// notifications to connected surfaces.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/adamancini/glint/internal/metrics"
	"github.com/adamancini/glint/internal/types"
)

// ErrUnknownChannel is returned when no handler is registered for a channel
var ErrUnknownChannel = errors.New("no handler registered for channel")

// ArgumentError reports invalid invocation arguments
type ArgumentError struct {
	Channel types.Channel
	Message string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Channel, e.Message)
}

// HandlerFunc answers one invocation. args are the raw JSON arguments.
type HandlerFunc func(ctx context.Context, args []json.RawMessage) (interface{}, error)

// Router maps channels to handlers
type Router struct {
	mu       sync.RWMutex
	handlers map[types.Channel]HandlerFunc
	metrics  *metrics.Metrics
}

// NewRouter creates an empty router. m may be nil.
func NewRouter(m *metrics.Metrics) *Router {
	return &Router{
		handlers: make(map[types.Channel]HandlerFunc),
		metrics:  m,
	}
}

// Handle registers fn for channel, replacing any previous handler
func (r *Router) Handle(channel types.Channel, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[channel] = fn
}

// Channels returns the registered channels, sorted
func (r *Router) Channels() []types.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Channel, 0, len(r.handlers))
	for c := range r.handlers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Invoke runs the handler for channel
func (r *Router) Invoke(ctx context.Context, channel types.Channel, args []json.RawMessage) (interface{}, error) {
	r.mu.RLock()
	fn, ok := r.handlers[channel]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
	}

	start := time.Now()
	result, err := fn(ctx, args)
	r.metrics.ObserveInvoke(channel.String(), err == nil, time.Since(start))

	entry := log.WithField("channel", channel)
	if err != nil {
		entry.Debugf("invoke failed: %v", err)
	} else {
		entry.Tracef("invoke took %v", time.Since(start))
	}
	return result, err
}

// stringArg decodes args[i] as a string
func stringArg(channel types.Channel, args []json.RawMessage, i int) (string, error) {
	if i >= len(args) {
		return "", &ArgumentError{Channel: channel, Message: fmt.Sprintf("missing argument %d", i)}
	}
	var s string
	if err := json.Unmarshal(args[i], &s); err != nil {
		return "", &ArgumentError{Channel: channel, Message: fmt.Sprintf("argument %d must be a string", i)}
	}
	return s, nil
}
