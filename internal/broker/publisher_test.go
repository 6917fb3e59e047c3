package broker

import (
	"context"
	"encoding/json"
	"testing"

	"leadrelay_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
)

type testBrokerConfig struct {
	redisURL string
}

func (c testBrokerConfig) GetRedisURL() string       { return c.redisURL }
func (c testBrokerConfig) GetRedisTLSInsecure() bool { return false }
func (c testBrokerConfig) GetEmailQueueName() string { return "outbound:email" }
func (c testBrokerConfig) GetChatQueueName() string  { return "outbound:chat" }

func TestNewRedisPublisherWithoutURL(t *testing.T) {
	pub, err := NewRedisPublisher(testBrokerConfig{}, logger.New("development"))
	if err != nil {
		t.Fatalf("NewRedisPublisher: %v", err)
	}
	if pub != nil {
		t.Fatal("expected nil publisher without redis url")
	}
}

func TestPublishPushesJSONOntoQueue(t *testing.T) {
	mr := miniredis.RunT(t)

	pub, err := NewRedisPublisher(testBrokerConfig{redisURL: "redis://" + mr.Addr()}, logger.New("development"))
	if err != nil {
		t.Fatalf("NewRedisPublisher: %v", err)
	}
	defer pub.Close()

	payload := map[string]string{"leadId": "abc", "to": "a@b.com"}
	if err := pub.Publish(context.Background(), "outbound:email", payload); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	raw, err := mr.Lpop("outbound:email")
	if err != nil {
		t.Fatalf("Lpop: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(raw), &got); err != nil {
		t.Fatalf("payload not json: %v", err)
	}
	if got["leadId"] != "abc" {
		t.Errorf("payload = %v", got)
	}
}
