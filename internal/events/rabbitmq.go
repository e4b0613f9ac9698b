package events

import (
	"context"

	"inventory/pkg/rabbitmq"
)

// RabbitPublisher sends events as persistent JSON messages to a queue.
type RabbitPublisher struct {
	client *rabbitmq.Client
}

func NewRabbitPublisher(url, queue string) (*RabbitPublisher, error) {
	client, err := rabbitmq.NewClient(rabbitmq.Config{URL: url, Queue: queue})
	if err != nil {
		return nil, err
	}
	return &RabbitPublisher{client: client}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.client.PublishJSON(e.Type, e)
}

// Subscribe starts consuming the publisher's queue in the background.
func (p *RabbitPublisher) Subscribe(ctx context.Context, handle func(context.Context, Event) error) error {
	return p.client.Consume(func(body []byte) error {
		e, err := Decode(body)
		if err != nil {
			return err
		}
		return handle(ctx, e)
	})
}

func (p *RabbitPublisher) Close() error {
	return p.client.Close()
}
