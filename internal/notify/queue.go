package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	contentTypeJSON    = "application/json"
	deadLetterSuffix   = ".dead"
	argDeadLetterEx    = "x-dead-letter-exchange"
	argDeadLetterKey   = "x-dead-letter-routing-key"
	defaultPrefetch    = 10
	publishTimeout     = 5 * time.Second
	errConnectFmt      = "failed to connect to RabbitMQ: %w"
	errOpenChannelFmt  = "failed to open channel: %w"
	errDeclareQueueFmt = "failed to declare queue %s: %w"
	errSetQoSFmt       = "failed to set QoS: %w"
	errEncodeJobFmt    = "failed to encode %s job: %w"
	errPublishJobFmt   = "failed to publish %s job: %w"
	errConsumeFmt      = "failed to register consumer: %w"
)

// Job is the queued form of a notification.
type Job struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// Broker is a RabbitMQ connection with the mail queue and its dead-letter
// queue declared.
type Broker struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	logger  *zap.Logger
}

func DialBroker(url, queue string, logger *zap.Logger) (*Broker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf(errConnectFmt, err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf(errOpenChannelFmt, err)
	}

	b := &Broker{conn: conn, channel: channel, queue: queue, logger: logger}
	if err := b.declare(); err != nil {
		b.Close()
		return nil, err
	}

	return b, nil
}

func (b *Broker) declare() error {
	dead := b.queue + deadLetterSuffix
	if _, err := b.channel.QueueDeclare(dead, true, false, false, false, nil); err != nil {
		return fmt.Errorf(errDeclareQueueFmt, dead, err)
	}

	args := amqp.Table{
		argDeadLetterEx:  "",
		argDeadLetterKey: dead,
	}
	if _, err := b.channel.QueueDeclare(b.queue, true, false, false, false, args); err != nil {
		return fmt.Errorf(errDeclareQueueFmt, b.queue, err)
	}

	return nil
}

func (b *Broker) Close() error {
	if b.channel != nil {
		b.channel.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

func (b *Broker) Publish(ctx context.Context, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf(errEncodeJobFmt, job.Kind, err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = b.channel.PublishWithContext(ctx, "", b.queue, false, false, amqp.Publishing{
		ContentType:  contentTypeJSON,
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Type:         job.Kind,
	})
	if err != nil {
		return fmt.Errorf(errPublishJobFmt, job.Kind, err)
	}
	return nil
}

// Consume hands each job to handle until ctx is cancelled. Successful jobs
// are acked. Permanent failures go to the dead-letter queue straight away;
// other failures are retried once and then dead-lettered.
func (b *Broker) Consume(ctx context.Context, handle func(context.Context, Job) error) error {
	if err := b.channel.Qos(defaultPrefetch, 0, false); err != nil {
		return fmt.Errorf(errSetQoSFmt, err)
	}

	deliveries, err := b.channel.Consume(b.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf(errConsumeFmt, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			b.handle(ctx, d, handle)
		}
	}
}

func (b *Broker) handle(ctx context.Context, d amqp.Delivery, handle func(context.Context, Job) error) {
	var job Job
	if err := json.Unmarshal(d.Body, &job); err != nil {
		b.logger.Error("dropping malformed mail job", zap.Error(err))
		d.Nack(false, false)
		return
	}

	err := handle(ctx, job)
	switch {
	case err == nil:
		d.Ack(false)
	case errors.Is(err, ErrPermanent) || d.Redelivered:
		b.logger.Error("mail job dead-lettered", zap.String("kind", job.Kind), zap.Error(err))
		d.Nack(false, false)
	default:
		b.logger.Warn("mail job failed, requeueing", zap.String("kind", job.Kind), zap.Error(err))
		d.Nack(false, true)
	}
}

// Publisher is the part of Broker the queue notifier needs.
type Publisher interface {
	Publish(ctx context.Context, job Job) error
}

// QueueNotifier hands notifications to the mail worker through RabbitMQ.
type QueueNotifier struct {
	publisher Publisher
}

func NewQueueNotifier(publisher Publisher) *QueueNotifier {
	return &QueueNotifier{publisher: publisher}
}

func (q *QueueNotifier) VideoApproved(ctx context.Context, msg VideoApproved) error {
	return q.enqueue(ctx, KindVideoApproved, msg)
}

func (q *QueueNotifier) ApprovalRequested(ctx context.Context, msg ApprovalRequested) error {
	return q.enqueue(ctx, KindApprovalRequested, msg)
}

func (q *QueueNotifier) TeamInvite(ctx context.Context, msg TeamInvite) error {
	return q.enqueue(ctx, KindTeamInvite, msg)
}

func (q *QueueNotifier) PasswordReset(ctx context.Context, msg PasswordReset) error {
	return q.enqueue(ctx, KindPasswordReset, msg)
}

func (q *QueueNotifier) enqueue(ctx context.Context, kind string, msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf(errEncodeJobFmt, kind, err)
	}
	return q.publisher.Publish(ctx, Job{Kind: kind, Payload: payload})
}
