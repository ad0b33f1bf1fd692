package update

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Event names emitted by the Updater
const (
	EventError              = "error"
	EventCheckingForUpdate  = "checking-for-update"
	EventUpdateAvailable    = "update-available"
	EventUpdateNotAvailable = "update-not-available"
	EventDownloadProgress   = "download-progress"
	EventUpdateDownloaded   = "update-downloaded"
)

// Handler receives an event payload. The payload type depends on the event:
// error for EventError, Progress for EventDownloadProgress, UpdateInfo for
// the others (nil for EventCheckingForUpdate).
type Handler func(payload interface{})

type emitter struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// On registers handler for event
func (e *emitter) On(event string, handler Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlers == nil {
		e.handlers = make(map[string][]Handler)
	}
	e.handlers[event] = append(e.handlers[event], handler)
}

// emit calls every handler for event in registration order. A panicking
// handler is logged and does not stop the others.
func (e *emitter) emit(event string, payload interface{}) {
	e.mu.RLock()
	handlers := append([]Handler(nil), e.handlers[event]...)
	e.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("handler for %s panicked: %v", event, r)
				}
			}()
			h(payload)
		}()
	}
}
