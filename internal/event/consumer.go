package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"learning-service/internal/models"

	"github.com/rabbitmq/amqp091-go"
)

// ActivityRecorder is the streak-tracker entry point the consumer feeds.
type ActivityRecorder interface {
	RecordActivity(ctx context.Context, childID string) (*models.Streak, error)
}

// ActivityEvent is published by sibling services whenever a child does
// something that should count toward their daily streak.
type ActivityEvent struct {
	Type    string `json:"type"`
	Payload struct {
		ChildID string `json:"child_id"`
	} `json:"payload"`
}

// EventConsumer binds qualifying activity events into the streak tracker,
// which runs its own badge pass. One pass per consumed event.
type EventConsumer struct {
	conn      *amqp091.Connection
	channel   *amqp091.Channel
	queueName string
	recorder  ActivityRecorder
	shutdown  chan struct{}
	wg        sync.WaitGroup
	enabled   bool
}

func NewEventConsumer(rabbitURI, exchange string, recorder ActivityRecorder) (*EventConsumer, error) {
	if rabbitURI == "" {
		log.Println("Warning: RabbitMQ URI is empty, event consumption is disabled")
		return &EventConsumer{
			recorder: recorder,
			shutdown: make(chan struct{}),
			enabled:  false,
		}, nil
	}

	conn, err := amqp091.Dial(rabbitURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	if err := channel.Qos(10, 0, false); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	queue, err := channel.QueueDeclare(
		"learning-service.activity",
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := channel.QueueBind(queue.Name, "activity.recorded.*", exchange, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	return &EventConsumer{
		conn:      conn,
		channel:   channel,
		queueName: queue.Name,
		recorder:  recorder,
		shutdown:  make(chan struct{}),
		enabled:   true,
	}, nil
}

func (c *EventConsumer) Start() error {
	if !c.enabled {
		return nil
	}

	deliveries, err := c.channel.Consume(
		c.queueName,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.shutdown:
				return
			case delivery, ok := <-deliveries:
				if !ok {
					log.Println("RabbitMQ delivery channel closed")
					return
				}
				c.handleDelivery(delivery)
			}
		}
	}()
	return nil
}

func (c *EventConsumer) handleDelivery(delivery amqp091.Delivery) {
	var evt ActivityEvent
	if err := json.Unmarshal(delivery.Body, &evt); err != nil {
		log.Printf("dropping malformed activity event: %v", err)
		delivery.Nack(false, false)
		return
	}
	if evt.Payload.ChildID == "" {
		delivery.Nack(false, false)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := c.recorder.RecordActivity(ctx, evt.Payload.ChildID); err != nil {
		// One redelivery per message: a deterministic failure must not
		// circulate forever.
		if delivery.Redelivered {
			log.Printf("dropping activity event for child %s after retry: %v", evt.Payload.ChildID, err)
			delivery.Nack(false, false)
			return
		}
		log.Printf("failed to record activity for child %s, requeueing: %v", evt.Payload.ChildID, err)
		delivery.Nack(false, true)
		return
	}
	delivery.Ack(false)
}

func (c *EventConsumer) Close() error {
	close(c.shutdown)
	c.wg.Wait()
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	return nil
}
