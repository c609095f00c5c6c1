package events

import "context"

// NoopConsumer stands in for kafka in local setups without a broker. Fetch
// blocks until the context ends so the intake loop idles instead of spinning.
type NoopConsumer struct{}

func NewNoopConsumer() *NoopConsumer {
	return &NoopConsumer{}
}

func (n *NoopConsumer) Fetch(ctx context.Context) (Message, error) {
	<-ctx.Done()
	return Message{}, ctx.Err()
}

func (n *NoopConsumer) Commit(_ context.Context, _ Message) error {
	return nil
}
