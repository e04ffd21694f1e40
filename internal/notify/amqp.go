package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/kirinyoku/slotsale/internal/domain"
)

type AMQPConfig struct {
	URL      string
	Exchange string
}

// publisher is the part of *amqp.Channel the sink uses.
type publisher interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	NotifyClose(c chan *amqp.Error) chan *amqp.Error
	Close() error
}

type connection interface {
	channel() (publisher, error)
	IsClosed() bool
	Close() error
}

type amqpConn struct {
	*amqp.Connection
}

func (c amqpConn) channel() (publisher, error) {
	ch, err := c.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func dialAMQP(url string) (connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return amqpConn{conn}, nil
}

// AMQPSink publishes booking events to a durable topic exchange, routed by
// event type. A dropped connection or channel is reopened on the next
// publish.
type AMQPSink struct {
	cfg  AMQPConfig
	log  *slog.Logger
	dial func(url string) (connection, error)

	mu       sync.Mutex
	conn     connection
	ch       publisher
	chClosed chan *amqp.Error
}

func NewAMQPSink(cfg AMQPConfig, log *slog.Logger) (*AMQPSink, error) {
	return newAMQPSink(cfg, log, dialAMQP)
}

func newAMQPSink(cfg AMQPConfig, log *slog.Logger, dial func(string) (connection, error)) (*AMQPSink, error) {
	const op = "notify.NewAMQPSink"

	if cfg.URL == "" {
		return nil, fmt.Errorf("%s: empty url", op)
	}

	if cfg.Exchange == "" {
		cfg.Exchange = "slotsale.events"
	}

	if log == nil {
		log = slog.Default()
	}

	s := &AMQPSink{cfg: cfg, log: log, dial: dial}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensure(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return s, nil
}

// ensure leaves s with an open connection and channel. Caller holds mu.
func (s *AMQPSink) ensure() error {
	if s.conn == nil || s.conn.IsClosed() {
		if s.conn != nil {
			s.log.Warn("rabbitmq connection lost, reconnecting")
		}
		s.ch = nil

		conn, err := s.dial(s.cfg.URL)
		if err != nil {
			return fmt.Errorf("dial: %w", err)
		}
		s.conn = conn
	}

	if s.ch != nil {
		select {
		case cerr := <-s.chClosed:
			s.log.Warn("rabbitmq channel closed, reopening", slog.Any("err", cerr))
			s.ch = nil
		default:
		}
	}

	if s.ch != nil {
		return nil
	}

	ch, err := s.conn.channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		s.cfg.Exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	s.ch = ch
	s.chClosed = ch.NotifyClose(make(chan *amqp.Error, 1))

	return nil
}

func (s *AMQPSink) Notify(ctx context.Context, ev domain.BookingEvent) error {
	const op = "notify.AMQPSink.Notify"

	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensure(); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	err = s.ch.Publish(
		s.cfg.Exchange,
		ev.Type,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.Booking.ID.String(),
			Timestamp:    time.Now().UTC(),
			Type:         ev.Type,
			Body:         body,
		},
	)
	if err != nil {
		// the broker closes a channel on most publish errors; start fresh
		_ = s.ch.Close()
		s.ch = nil
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (s *AMQPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.ch != nil {
		errs = append(errs, s.ch.Close())
	}
	if s.conn != nil && !s.conn.IsClosed() {
		errs = append(errs, s.conn.Close())
	}
	s.ch, s.conn = nil, nil

	return errors.Join(errs...)
}
