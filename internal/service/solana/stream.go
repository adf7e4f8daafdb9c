package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"

	domrepo "PoolWatch/internal/domain/repository"
)

// LogStream implements a SignatureStream backed by the Solana WebSocket API.
// It subscribes to logs mentioning the watched program ids and surfaces the
// signatures of matching transactions.
type LogStream struct {
	websocketURL   string
	programs       []string
	commitment     string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// NewLogStream creates a new program-log SignatureStream.
func NewLogStream(websocketURL string, programs []string, commitment string, reconnectDelay, pingInterval time.Duration) domrepo.SignatureStream {
	if commitment == "" {
		commitment = "confirmed"
	}
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &LogStream{
		websocketURL:   websocketURL,
		programs:       programs,
		commitment:     commitment,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (s *LogStream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.websocketURL, nil)
	if err != nil {
		return fmt.Errorf("logstream connect: %w", err)
	}
	s.conn = conn
	s.connected = true
	log.Printf("logstream: connected")
	return nil
}

// Subscribe issues one logsSubscribe per watched program.
func (s *LogStream) Subscribe(ctx context.Context) error {
	if s.conn == nil || !s.connected {
		return fmt.Errorf("logstream not connected")
	}
	for i, program := range s.programs {
		msg := rpcRequest{
			Jsonrpc: "2.0",
			ID:      i + 1,
			Method:  "logsSubscribe",
			Params: []any{
				map[string]any{"mentions": []string{program}},
				map[string]any{"commitment": s.commitment},
			},
		}
		if err := s.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", program, err)
		}
		log.Printf("logstream: subscribed %s", program)
	}
	return nil
}

type logNotification struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Value struct {
				Signature string          `json:"signature"`
				Err       json.RawMessage `json:"err"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

// Read streams signatures and errors. Failed transactions are skipped.
func (s *LogStream) Read(ctx context.Context) (<-chan string, <-chan error) {
	sigs := make(chan string, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if s.conn != nil {
					_ = s.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(sigs)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if s.conn == nil {
					errs <- fmt.Errorf("logstream conn nil")
					return
				}
				_, b, err := s.conn.ReadMessage()
				if err != nil {
					s.connected = false
					errs <- fmt.Errorf("logstream read: %w", err)
					return
				}
				var n logNotification
				if err := json.Unmarshal(b, &n); err != nil {
					// ignore non-notification frames (subscription acks)
					continue
				}
				if n.Method != "logsNotification" {
					continue
				}
				v := n.Params.Result.Value
				if v.Signature == "" {
					continue
				}
				if len(v.Err) > 0 && string(v.Err) != "null" {
					continue
				}
				select {
				case sigs <- v.Signature:
				default:
					// reader is behind; drop rather than block the socket
				}
			}
		}
	}()

	return sigs, errs
}

// Reconnect closes and redials, then resubscribes.
func (s *LogStream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.reconnectDelay):
	}
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

// Close terminates the connection.
func (s *LogStream) Close() error {
	s.connected = false
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// IsConnected reports connection state.
func (s *LogStream) IsConnected() bool { return s.connected }
