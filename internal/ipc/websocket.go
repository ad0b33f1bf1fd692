package ipc

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	log "github.com/sirupsen/logrus"

	"github.com/adamancini/glint/internal/logging"
	"github.com/adamancini/glint/internal/surface"
	"github.com/adamancini/glint/internal/types"
)

// Envelope types
const (
	EnvelopeReady  = "ready"
	EnvelopeInvoke = "invoke"
	EnvelopeReply  = "reply"
	EnvelopeEvent  = "event"
)

const writeTimeout = 10 * time.Second

// Envelope is one WebSocket frame. A surface sends invoke frames and receives
// reply, event and a single ready frame carrying its surface id.
type Envelope struct {
	Type    string            `json:"type"`
	ID      string            `json:"id,omitempty"`
	Channel types.Channel     `json:"channel,omitempty"`
	Args    []json.RawMessage `json:"args,omitempty"`
	Result  interface{}       `json:"result,omitempty"`
	Error   string            `json:"error,omitempty"`
	Payload interface{}       `json:"payload,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	acceptOptions := &websocket.AcceptOptions{
		OriginPatterns: s.opts.AllowedOrigins,
	}
	if len(acceptOptions.OriginPatterns) == 0 {
		acceptOptions.OriginPatterns = []string{"*"}
	}

	conn, err := websocket.Accept(w, r, acceptOptions)
	if err != nil {
		log.Errorf("WebSocket upgrade failed from %s: %v", r.RemoteAddr, err)
		return
	}

	surf := s.surfaces.Register()
	ctx, cancel := context.WithCancel(logging.WithSurface(r.Context(), surf.ID()))
	defer func() {
		cancel()
		s.surfaces.Unregister(surf.ID())
		if err := conn.Close(websocket.StatusNormalClosure, ""); err != nil {
			log.WithContext(ctx).Tracef("failed to close WebSocket: %v", err)
		}
	}()

	log.WithContext(ctx).Debugf("surface connected from %s", r.RemoteAddr)

	if err := writeEnvelope(ctx, conn, Envelope{Type: EnvelopeReady, ID: surf.ID()}); err != nil {
		log.WithContext(ctx).Debugf("failed to greet surface: %v", err)
		return
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		s.pushEvents(ctx, conn, surf)
	}()

	s.readInvocations(ctx, conn)
	cancel()
	wg.Wait()
}

// pushEvents drains the surface outbox onto the connection
func (s *Server) pushEvents(ctx context.Context, conn *websocket.Conn, surf *surface.Surface) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-surf.Done():
			return
		case msg := <-surf.Outbox():
			env := Envelope{Type: EnvelopeEvent, Channel: msg.Channel, Payload: msg.Payload}
			if err := writeEnvelope(ctx, conn, env); err != nil {
				log.WithContext(ctx).Debugf("failed to push %s: %v", msg.Channel, err)
				return
			}
		}
	}
}

// readInvocations serves invoke frames until the connection closes. Each
// invocation runs on its own goroutine so a slow check does not block
// other calls from the same surface.
func (s *Server) readInvocations(ctx context.Context, conn *websocket.Conn) {
	var inflight sync.WaitGroup
	defer inflight.Wait()

	for {
		var env Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			switch {
			case ctx.Err() != nil:
			case websocket.CloseStatus(err) == websocket.StatusNormalClosure,
				websocket.CloseStatus(err) == websocket.StatusGoingAway:
				log.WithContext(ctx).Debug("surface disconnected")
			default:
				log.WithContext(ctx).Warnf("WebSocket read error: %v", err)
			}
			return
		}

		if env.Type != EnvelopeInvoke {
			log.WithContext(ctx).Warnf("unexpected envelope type %q", env.Type)
			continue
		}

		inflight.Add(1)
		go func(env Envelope) {
			defer inflight.Done()
			reply := s.invoke(ctx, env)
			if err := writeEnvelope(ctx, conn, reply); err != nil {
				log.WithContext(ctx).Debugf("failed to reply to %s: %v", env.Channel, err)
			}
		}(env)
	}
}

func (s *Server) invoke(ctx context.Context, env Envelope) Envelope {
	reply := Envelope{Type: EnvelopeReply, ID: env.ID, Channel: env.Channel}

	channel, err := types.ParseChannel(env.Channel.String())
	if err != nil || !channel.IsInvoke() {
		reply.Error = "unknown channel " + env.Channel.String()
		return reply
	}

	result, err := s.router.Invoke(ctx, channel, env.Args)
	if err != nil {
		reply.Error = err.Error()
		return reply
	}
	reply.Result = result
	return reply
}

func writeEnvelope(ctx context.Context, conn *websocket.Conn, env Envelope) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, env)
}
