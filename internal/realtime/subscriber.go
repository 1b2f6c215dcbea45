package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// changeEvent is the wire format pushed by the remote store when a table
// changes. The payload carries only the table name; subscribers refetch.
type changeEvent struct {
	Table string `json:"table"`
}

// Subscriber maintains a websocket connection to the remote store's change
// feed and dispatches per-table callbacks. It supplements polling: a missed
// event is recovered by the next poll tick.
type Subscriber struct {
	url           string
	reconnectWait time.Duration

	mu       sync.Mutex
	handlers map[string][]func()
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSubscriber creates a subscriber for the given change feed URL
func NewSubscriber(url string, reconnectWait time.Duration) *Subscriber {
	if reconnectWait <= 0 {
		reconnectWait = 5 * time.Second
	}
	return &Subscriber{
		url:           url,
		reconnectWait: reconnectWait,
		handlers:      make(map[string][]func()),
	}
}

// Subscribe registers a callback for change events on one table. Must be
// called before Start.
func (s *Subscriber) Subscribe(table string, fn func()) {
	s.mu.Lock()
	s.handlers[table] = append(s.handlers[table], fn)
	s.mu.Unlock()
}

// Start connects and reads events until the context is cancelled or Close is
// called, reconnecting after transient failures.
func (s *Subscriber) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		for {
			if err := s.readLoop(ctx); err != nil {
				log.Warn().Err(err).Str("url", s.url).Msg("change feed disconnected")
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.reconnectWait):
			}
		}
	}()
}

func (s *Subscriber) readLoop(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Info().Str("url", s.url).Msg("change feed connected")

	// The watcher must not outlive this connection, or reconnect churn
	// leaks one goroutine per dial.
	readDone := make(chan struct{})
	defer close(readDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-readDone:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var ev changeEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			log.Warn().Err(err).Msg("dropping malformed change event")
			continue
		}
		s.dispatch(ev.Table)
	}
}

func (s *Subscriber) dispatch(table string) {
	s.mu.Lock()
	handlers := make([]func(), len(s.handlers[table]))
	copy(handlers, s.handlers[table])
	s.mu.Unlock()

	if len(handlers) == 0 {
		return
	}
	log.Debug().Str("table", table).Int("handlers", len(handlers)).Msg("change event")
	for _, fn := range handlers {
		go fn()
	}
}

// Close stops the subscriber and waits for the read loop to exit
func (s *Subscriber) Close() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
