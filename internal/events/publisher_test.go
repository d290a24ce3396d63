package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/NhanHoThanh/smart-home-faceauth/internal/models"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

func TestPublisher_Publish(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubsub.Close()

	messages, err := pubsub.Subscribe(context.Background(), Topic)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	publisher := NewPublisher(pubsub)
	event := models.AuthEvent{
		Kind:         "granted",
		IdentityID:   "u1",
		IdentityName: "Alice",
		Confidence:   0.92,
		At:           time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	if err := publisher.Publish(event); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case msg := <-messages:
		msg.Ack()
		if got := msg.Metadata.Get("kind"); got != "granted" {
			t.Errorf("metadata kind = %q; want %q", got, "granted")
		}

		var decoded models.AuthEvent
		if err := json.Unmarshal(msg.Payload, &decoded); err != nil {
			t.Fatalf("payload did not decode: %v", err)
		}
		if decoded.IdentityID != "u1" || decoded.Confidence != 0.92 {
			t.Errorf("unexpected event payload: %+v", decoded)
		}
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
}
