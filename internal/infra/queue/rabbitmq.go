package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"debate-arena/internal/domain"
	"debate-arena/internal/infra/metrics"
)

// AMQPFactCheckQueue реализует очередь проверок через RabbitMQ.
type AMQPFactCheckQueue struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	queue      string
	deliveries <-chan amqp.Delivery
}

// NewAMQPFactCheckQueue подключается к RabbitMQ и объявляет очередь.
func NewAMQPFactCheckQueue(amqpURL, queue string) (*AMQPFactCheckQueue, error) {
	if amqpURL == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queue == "" {
		return nil, errors.New("queue name is empty")
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	return &AMQPFactCheckQueue{conn: conn, channel: ch, queue: queue}, nil
}

// Enqueue публикует задачу в очередь.
func (q *AMQPFactCheckQueue) Enqueue(ctx context.Context, job domain.FactCheckJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	start := time.Now()
	err = q.channel.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID,
		Body:         payload,
	})
	metrics.ObserveNetworkRequest("rabbitmq", "publish", q.queue, start, err)
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

// Pop блокирующе читает задачу из очереди. Сообщение подтверждается
// после успешного декодирования; нечитаемые сообщения отбрасываются.
func (q *AMQPFactCheckQueue) Pop(ctx context.Context) (domain.FactCheckJob, error) {
	if q.deliveries == nil {
		deliveries, err := q.channel.Consume(q.queue, "", false, false, false, false, nil)
		if err != nil {
			return domain.FactCheckJob{}, fmt.Errorf("consume queue: %w", err)
		}
		q.deliveries = deliveries
	}
	for {
		select {
		case <-ctx.Done():
			return domain.FactCheckJob{}, ctx.Err()
		case delivery, ok := <-q.deliveries:
			if !ok {
				return domain.FactCheckJob{}, errors.New("amqp queue: канал доставки закрыт")
			}
			var job domain.FactCheckJob
			if err := json.Unmarshal(delivery.Body, &job); err != nil {
				_ = delivery.Reject(false)
				continue
			}
			if err := delivery.Ack(false); err != nil {
				return domain.FactCheckJob{}, fmt.Errorf("ack job: %w", err)
			}
			return job, nil
		}
	}
}

// Close закрывает соединение с RabbitMQ.
func (q *AMQPFactCheckQueue) Close() error {
	if err := q.channel.Close(); err != nil {
		_ = q.conn.Close()
		return err
	}
	return q.conn.Close()
}
