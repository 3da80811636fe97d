package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketSource connects to a single combined book-ticker stream and
// forwards each received message to the handler unparsed.
type WebSocketSource struct {
	url    string
	dialer *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebSocketSource builds a source that will dial url on Run.
func NewWebSocketSource(url string) *WebSocketSource {
	return &WebSocketSource{url: url, dialer: websocket.DefaultDialer}
}

// Run dials the configured URL and reads messages until ctx is canceled or
// the connection closes.
func (w *WebSocketSource) Run(ctx context.Context, handler Handler) error {
	conn, _, err := w.dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("transport: dial %s: %w", w.url, err)
	}

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("transport: read: %w", err)
		}
		handler(message)
	}
}

// Close closes the underlying connection, if one is open.
func (w *WebSocketSource) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return nil
	}
	return w.conn.Close()
}
