package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/opensource-finance/warden/internal/domain"
)

// Message metadata travels in NATS headers; the body is the raw payload.
const (
	headerMessageID = "Warden-Msg-Id"
	headerPublished = "Warden-Published"
	headerError     = "Warden-Error"
)

// queueGroup shares work between nodes. Only topics a single node must
// handle are subscribed through it; rule change announcements reach every node.
const queueGroup = "warden-workers"

var queueTopics = map[string]bool{
	domain.TopicAuthorize:            true,
	domain.TopicTransactionCompleted: true,
}

// defaultRequestTimeout bounds a Request whose context has no deadline.
const defaultRequestTimeout = 30 * time.Second

// NATSBus implements EventBus on a NATS connection.
// Used by the Pro tier so several nodes can share authorization traffic.
type NATSBus struct {
	conn *nats.Conn

	mu   sync.Mutex
	subs map[string]*natsSubscription
}

type natsSubscription struct {
	id    string
	topic string
	sub   *nats.Subscription
	bus   *NATSBus
}

// NewNATSBus connects to NATS. The connection keeps retrying in the
// background when the server is not reachable yet; Ping reports it until then.
func NewNATSBus(cfg domain.EventBusConfig) (*NATSBus, error) {
	url := cfg.NATSUrl
	if url == "" {
		url = nats.DefaultURL
	}
	maxReconnects := cfg.NATSMaxReconnects
	if maxReconnects == 0 {
		maxReconnects = 10
	}
	wait := time.Duration(cfg.NATSReconnectWait) * time.Second
	if wait == 0 {
		wait = 5 * time.Second
	}

	opts := []nats.Option{
		nats.Name("warden"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(wait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			var subject string
			if sub != nil {
				subject = sub.Subject
			}
			slog.Error("nats async error", "subject", subject, "error", err)
		}),
	}
	if cfg.NATSToken != "" {
		opts = append(opts, nats.Token(cfg.NATSToken))
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	slog.Info("nats connection configured",
		"url", url,
		"connected", conn.IsConnected(),
	)

	return &NATSBus{conn: conn, subs: make(map[string]*natsSubscription)}, nil
}

func newNATSMsg(subject string, payload []byte) *nats.Msg {
	m := nats.NewMsg(subject)
	m.Data = payload
	m.Header.Set(headerMessageID, uuid.New().String())
	m.Header.Set(headerPublished, strconv.FormatInt(time.Now().UnixNano(), 10))
	return m
}

func fromNATSMsg(m *nats.Msg) *domain.Message {
	msg := &domain.Message{
		Topic:    m.Subject,
		Payload:  m.Data,
		Metadata: make(map[string]string),
	}
	if m.Header != nil {
		msg.ID = m.Header.Get(headerMessageID)
		msg.Timestamp, _ = strconv.ParseInt(m.Header.Get(headerPublished), 10, 64)
	}
	if m.Reply != "" {
		msg.Metadata[metaReplyTo] = m.Reply
	}
	return msg
}

// Publish sends a message to a NATS subject.
func (b *NATSBus) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := b.conn.PublishMsg(newNATSMsg(topic, payload)); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe registers a handler for a NATS subject. Handler replies are
// returned to requesters even when the handler also reports an error.
func (b *NATSBus) Subscribe(ctx context.Context, topic string, handler domain.MessageHandler) (domain.Subscription, error) {
	cb := func(m *nats.Msg) {
		msg := fromNATSMsg(m)
		reply, err := handler(ctx, msg)
		if err != nil {
			slog.Error("handler error",
				"topic", topic,
				"message_id", msg.ID,
				"error", err,
			)
		}
		if m.Reply == "" || reply == nil {
			return
		}
		resp := newNATSMsg(m.Reply, reply)
		if err != nil {
			resp.Header.Set(headerError, err.Error())
		}
		if err := m.RespondMsg(resp); err != nil {
			slog.Warn("failed to send reply", "topic", topic, "error", err)
		}
	}

	var (
		ns  *nats.Subscription
		err error
	)
	if queueTopics[topic] {
		ns, err = b.conn.QueueSubscribe(topic, queueGroup, cb)
	} else {
		ns, err = b.conn.Subscribe(topic, cb)
	}
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	sub := &natsSubscription{id: uuid.New().String(), topic: topic, sub: ns, bus: b}
	b.mu.Lock()
	b.subs[sub.id] = sub
	b.mu.Unlock()
	return sub, nil
}

// Request sends a message and waits for one reply.
func (b *NATSBus) Request(ctx context.Context, topic string, payload []byte) ([]byte, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultRequestTimeout)
		defer cancel()
	}

	reply, err := b.conn.RequestMsgWithContext(ctx, newNATSMsg(topic, payload))
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", topic, err)
	}
	if reply.Header != nil {
		if remote := reply.Header.Get(headerError); remote != "" {
			slog.Debug("request answered with error", "topic", topic, "error", remote)
		}
	}
	return reply.Data, nil
}

// Ping checks NATS connectivity.
func (b *NATSBus) Ping(ctx context.Context) error {
	if !b.conn.IsConnected() {
		return errors.New("nats: not connected")
	}
	return b.conn.FlushWithContext(ctx)
}

// Close drains in-flight messages, then closes the connection.
func (b *NATSBus) Close() error {
	b.mu.Lock()
	b.subs = make(map[string]*natsSubscription)
	b.mu.Unlock()

	if b.conn.IsClosed() {
		return nil
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
		return fmt.Errorf("drain nats connection: %w", err)
	}
	return nil
}

// Stats returns NATS connection statistics.
func (b *NATSBus) Stats() nats.Statistics {
	return b.conn.Stats()
}

// Unsubscribe removes the subscription.
func (s *natsSubscription) Unsubscribe() error {
	s.bus.mu.Lock()
	delete(s.bus.subs, s.id)
	s.bus.mu.Unlock()
	return s.sub.Unsubscribe()
}

// Topic returns the subscribed topic.
func (s *natsSubscription) Topic() string {
	return s.topic
}
