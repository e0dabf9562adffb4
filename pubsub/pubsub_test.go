package pubsub_test

import (
	"testing"
	"time"

	"github.com/paynet-xyz/paynet-mint/pubsub"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := pubsub.New()
	sub := b.Subscribe(pubsub.TopicMintQuoteStateChanged)
	defer sub.Close()

	b.Publish(pubsub.TopicMintQuoteStateChanged, []byte("hello"))

	select {
	case msg := <-sub.Messages():
		if string(msg.Payload()) != "hello" {
			t.Fatalf("expected payload %q, got %q", "hello", msg.Payload())
		}
		if msg.Topic() != pubsub.TopicMintQuoteStateChanged {
			t.Fatalf("expected topic %v, got %v", pubsub.TopicMintQuoteStateChanged, msg.Topic())
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestPublishFansOutToMultipleSubscribers(t *testing.T) {
	b := pubsub.New()
	a := b.Subscribe(pubsub.TopicMeltQuoteStateChanged)
	c := b.Subscribe(pubsub.TopicMeltQuoteStateChanged)
	defer a.Close()
	defer c.Close()

	b.Publish(pubsub.TopicMeltQuoteStateChanged, []byte("x"))

	for _, sub := range []*pubsub.Subscriber{a, c} {
		select {
		case <-sub.Messages():
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for fan-out delivery")
		}
	}
}

func TestPublishDoesNotCrossTopics(t *testing.T) {
	b := pubsub.New()
	sub := b.Subscribe(pubsub.TopicMintQuoteStateChanged)
	defer sub.Close()

	b.Publish(pubsub.TopicMeltQuoteStateChanged, []byte("wrong topic"))

	select {
	case msg := <-sub.Messages():
		t.Fatalf("unexpected message on unrelated topic: %v", msg.Payload())
	case <-time.After(50 * time.Millisecond):
		// expected: no delivery
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := pubsub.New()
	sub := b.Subscribe(pubsub.TopicMintQuoteStateChanged)
	b.Unsubscribe(sub, pubsub.TopicMintQuoteStateChanged)

	b.Publish(pubsub.TopicMintQuoteStateChanged, []byte("late"))

	select {
	case <-sub.Messages():
		t.Fatal("unsubscribed subscriber should not receive further messages")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscriberCloseIsIdempotent(t *testing.T) {
	sub := pubsub.New().Subscribe(pubsub.TopicMintQuoteStateChanged)
	sub.Close()
	sub.Close() // must not panic on double close
}
