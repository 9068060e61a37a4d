// internal/rabbitmq/client.go
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Fronut/Picture-management-website/internal/messaging/payloads"
)

// Client инкапсулирует соединение и канал RabbitMQ.
// Очередь объявляется durable при создании клиента
type Client struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queueName string
	logger    *slog.Logger
}

// NewClient подключается к RabbitMQ и объявляет рабочую очередь
func NewClient(amqpURL, queueName string, logger *slog.Logger) (*Client, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("не удалось открыть канал RabbitMQ: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("не удалось объявить очередь %s: %w", queueName, err)
	}

	logger.Info("rabbitmq connected", "queue", queueName)

	return &Client{
		conn:      conn,
		channel:   ch,
		queueName: queueName,
		logger:    logger,
	}, nil
}

// PublishImageEvent публикует событие жизненного цикла изображения
// в очередь в формате JSON
func (c *Client) PublishImageEvent(ctx context.Context, payload payloads.ImageEventPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("не удалось сериализовать событие: %w", err)
	}

	err = c.channel.PublishWithContext(ctx,
		"",          // exchange
		c.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("не удалось опубликовать событие: %w", err)
	}

	c.logger.Debug("image event published", "event_type", payload.EventType, "image_id", payload.ImageID)
	return nil
}

// StartConsumingImageEvents читает события из очереди и передаёт их
// обработчику. Сообщение подтверждается только после успешной
// обработки; при ошибке уходит в Nack с requeue
func (c *Client) StartConsumingImageEvents(ctx context.Context, handler func(ctx context.Context, payload payloads.ImageEventPayload) error) error {
	msgs, err := c.channel.Consume(
		c.queueName,
		"",    // consumer
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("не удалось начать чтение очереди %s: %w", c.queueName, err)
	}

	c.logger.Info("consuming image events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("канал доставки очереди %s закрыт", c.queueName)
			}

			var payload payloads.ImageEventPayload
			if err := json.Unmarshal(msg.Body, &payload); err != nil {
				c.logger.Error("failed to decode image event, dropping", "error", err)
				msg.Nack(false, false)
				continue
			}

			if err := handler(ctx, payload); err != nil {
				c.logger.Error("image event handler failed", "event_type", payload.EventType, "image_id", payload.ImageID, "error", err)
				msg.Nack(false, true)
				continue
			}

			msg.Ack(false)
		}
	}
}

// Close закрывает канал и соединение
func (c *Client) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}
