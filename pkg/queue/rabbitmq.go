package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"digi-shop/pkg/config"
	"digi-shop/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	BroadcastQueueName = "broadcast_queue"
	BroadcastExchange  = "broadcasts"
	broadcastKey       = "broadcast"
)

// BroadcastTask is one queued admin broadcast message.
type BroadcastTask struct {
	ChatID   int64  `json:"chat_id"`
	Text     string `json:"text"`
	Priority int    `json:"priority"`
}

type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *logger.Logger
}

func NewRabbitMQClient(cfg *config.Config, log *logger.Logger) (*Client, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%s/",
		cfg.RabbitMQUser,
		cfg.RabbitMQPassword,
		cfg.RabbitMQHost,
		cfg.RabbitMQPort,
	)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		BroadcastExchange, // name
		"direct",          // type
		true,              // durable
		false,             // auto-deleted
		false,             // internal
		false,             // no-wait
		nil,               // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = channel.QueueDeclare(
		BroadcastQueueName, // name
		true,               // durable
		false,              // delete when unused
		false,              // exclusive
		false,              // no-wait
		amqp.Table{
			"x-max-priority": 10,
		},
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	err = channel.QueueBind(
		BroadcastQueueName,
		broadcastKey,
		BroadcastExchange,
		false,
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	log.Info("Connected to RabbitMQ at %s:%s", cfg.RabbitMQHost, cfg.RabbitMQPort)

	return &Client{
		conn:    conn,
		channel: channel,
		logger:  log,
	}, nil
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) PublishBroadcast(task BroadcastTask) error {
	priority := task.Priority
	if priority < 0 {
		priority = 0
	}
	if priority > 10 {
		priority = 10
	}

	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	err = c.channel.Publish(
		BroadcastExchange,
		broadcastKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			Priority:     uint8(priority),
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		c.logger.Error("[RABBITMQ] Failed to publish broadcast for chat %d: %v", task.ChatID, err)
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}

// ConsumeBroadcasts delivers queued broadcasts to the handler. Failed
// messages are requeued once; malformed ones are dropped.
func (c *Client) ConsumeBroadcasts(handler func(task BroadcastTask) error) error {
	msgs, err := c.channel.Consume(
		BroadcastQueueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("[RABBITMQ] Started consuming from %s", BroadcastQueueName)

	go func() {
		for msg := range msgs {
			var task BroadcastTask
			if err := json.Unmarshal(msg.Body, &task); err != nil {
				c.logger.Error("[RABBITMQ] Failed to unmarshal broadcast task: %v", err)
				msg.Nack(false, false)
				continue
			}

			if err := handler(task); err != nil {
				c.logger.Error("[RABBITMQ] Broadcast to chat %d failed: %v", task.ChatID, err)
				msg.Nack(false, !msg.Redelivered)
				continue
			}

			msg.Ack(false)
		}
	}()

	return nil
}

func (c *Client) QueueLength() (int, error) {
	queue, err := c.channel.QueueInspect(BroadcastQueueName)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect queue: %w", err)
	}
	return queue.Messages, nil
}
