// Package broker fans processed-data events out to connected real-time
// clients over topic subscriptions.
//
// The broker tracks connections and per-topic subscriber sets. All table
// mutations are mutually exclusive; publish copies the subscriber set under
// the lock and performs transport sends outside it, so one slow or dead
// client never blocks the tables or the other subscribers.
package broker

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gapilongo/OPiN/errors"
	"github.com/gapilongo/OPiN/metric"
)

// Connection is the transport surface the broker needs from a client. Send
// failure means the client is gone; the broker disconnects it.
type Connection interface {
	ID() string
	Send(message []byte) error
	Close() error
}

// Event is the JSON shape published to subscribers.
type Event struct {
	Topic string `json:"topic"`
	Data  any    `json:"data"`
}

// Broker is the connection and topic registry. Safe for concurrent use.
type Broker struct {
	mu          sync.Mutex
	connections map[string]Connection
	topics      map[string]map[string]struct{}
	metrics     *metric.Metrics
	logger      *slog.Logger
}

// New creates an empty broker. The metrics may be nil.
func New(metrics *metric.Metrics, logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		connections: make(map[string]Connection),
		topics:      make(map[string]map[string]struct{}),
		metrics:     metrics,
		logger:      logger.With("component", "broker"),
	}
}

// Connect registers a connection. A second connection reusing a live ID is
// rejected.
func (b *Broker) Connect(conn Connection) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := conn.ID()
	if _, exists := b.connections[id]; exists {
		return errors.WrapInvalid(errors.ErrConnectionClosed,
			"broker", "Connect", "connection id "+id+" already registered")
	}
	b.connections[id] = conn
	if b.metrics != nil {
		b.metrics.BrokerConnections.Inc()
	}
	b.logger.Debug("client connected", "connection_id", id)
	return nil
}

// Disconnect removes the connection and purges it from every topic.
// Disconnecting an unknown or already-removed ID is a no-op.
func (b *Broker) Disconnect(id string) {
	b.mu.Lock()
	conn, exists := b.connections[id]
	if exists {
		delete(b.connections, id)
		for topic, subscribers := range b.topics {
			delete(subscribers, id)
			if len(subscribers) == 0 {
				delete(b.topics, topic)
			}
		}
	}
	b.mu.Unlock()

	if !exists {
		return
	}
	if err := conn.Close(); err != nil {
		b.logger.Debug("error closing connection", "connection_id", id, "error", err)
	}
	if b.metrics != nil {
		b.metrics.BrokerConnections.Dec()
	}
	b.logger.Debug("client disconnected", "connection_id", id)
}

// Subscribe adds the connection to a topic's subscriber set.
func (b *Broker) Subscribe(id, topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.connections[id]; !exists {
		return errors.WrapInvalid(errors.ErrConnectionClosed,
			"broker", "Subscribe", "unknown connection "+id)
	}
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[string]struct{})
	}
	b.topics[topic][id] = struct{}{}
	return nil
}

// Unsubscribe removes the connection from a topic. Unknown pairs are a
// no-op.
func (b *Broker) Unsubscribe(id, topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.topics[topic]; ok {
		delete(subscribers, id)
		if len(subscribers) == 0 {
			delete(b.topics, topic)
		}
	}
}

// Publish fans the event out to the topic's current subscribers.
//
// Best effort: the subscriber set is snapshotted under the lock, sends run
// outside it and in parallel, and a failed send disconnects that subscriber.
// Publish never reports delivery problems to the caller.
func (b *Broker) Publish(topic string, data any) {
	payload, err := json.Marshal(Event{Topic: topic, Data: data})
	if err != nil {
		b.logger.Error("unencodable publish payload", "topic", topic, "error", err)
		return
	}

	b.mu.Lock()
	targets := make([]Connection, 0, len(b.topics[topic]))
	for id := range b.topics[topic] {
		if conn, ok := b.connections[id]; ok {
			targets = append(targets, conn)
		}
	}
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.BrokerPublished.WithLabelValues(topic).Inc()
	}
	if len(targets) == 0 {
		return
	}

	var wg sync.WaitGroup
	var failedMu sync.Mutex
	var failed []string
	for _, conn := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := conn.Send(payload); err != nil {
				failedMu.Lock()
				failed = append(failed, conn.ID())
				failedMu.Unlock()
			}
		}()
	}
	wg.Wait()

	for _, id := range failed {
		b.logger.Debug("send failed, disconnecting subscriber",
			"connection_id", id, "topic", topic)
		b.Disconnect(id)
	}
}

// ConnectionCount returns the number of live connections.
func (b *Broker) ConnectionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.connections)
}

// TopicSubscribers returns how many connections subscribe to a topic.
func (b *Broker) TopicSubscribers(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics[topic])
}

// CategoryTopic is the topic new-data events for a category publish under.
func CategoryTopic(category string) string {
	return "category:" + category
}
