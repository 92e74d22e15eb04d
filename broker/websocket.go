package broker

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// Write timeout for a single frame. A client that cannot drain a frame in
// this window is treated as gone.
const writeWait = 10 * time.Second

// clientMessage is the inbound control protocol.
type clientMessage struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
}

// ackMessage confirms a subscribe or unsubscribe.
type ackMessage struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
}

// WSConnection adapts a websocket to the broker's Connection interface.
// Gorilla connections allow one concurrent writer, so sends serialize on a
// channel drained by a writer goroutine.
type WSConnection struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

// sendBuffer bounds per-client backlog before the client counts as too slow.
const sendBuffer = 64

// NewWSConnection wraps an upgraded websocket.
func NewWSConnection(id string, conn *websocket.Conn) *WSConnection {
	c := &WSConnection{
		id:   id,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// ID implements Connection.
func (c *WSConnection) ID() string { return c.id }

// Send implements Connection. It fails when the client's send buffer is
// full or the connection is closed.
func (c *WSConnection) Send(message []byte) error {
	select {
	case <-c.done:
		return websocket.ErrCloseSent
	case c.send <- message:
		return nil
	default:
		return websocket.ErrCloseSent
	}
}

// Close implements Connection. Safe to call more than once; only the first
// call tears the socket down.
func (c *WSConnection) Close() error {
	select {
	case <-c.done:
		return nil
	default:
		close(c.done)
		return c.conn.Close()
	}
}

func (c *WSConnection) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		}
	}
}

// writeJSON sends a control frame through the same serialized writer path.
func (c *WSConnection) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Send(data)
}

// Serve registers the connection with the broker and runs the client read
// loop until the socket drops. It blocks; call from the HTTP handler
// goroutine. The connection is always disconnected on return.
func Serve(b *Broker, c *WSConnection, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "ws-session", "connection_id", c.ID())

	if err := b.Connect(c); err != nil {
		logger.Warn("rejecting connection", "error", err)
		_ = c.Close()
		return
	}
	defer b.Disconnect(c.ID())

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("read error", "error", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Debug("ignoring malformed client message", "error", err)
			continue
		}

		switch msg.Type {
		case "subscribe":
			if err := b.Subscribe(c.ID(), msg.Topic); err != nil {
				logger.Warn("subscribe failed", "topic", msg.Topic, "error", err)
				continue
			}
			if err := c.writeJSON(ackMessage{Type: "subscribed", Topic: msg.Topic}); err != nil {
				return
			}
		case "unsubscribe":
			b.Unsubscribe(c.ID(), msg.Topic)
			if err := c.writeJSON(ackMessage{Type: "unsubscribed", Topic: msg.Topic}); err != nil {
				return
			}
		default:
			logger.Debug("unknown client message type", "type", msg.Type)
		}
	}
}
