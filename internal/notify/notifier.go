// internal/notify/notifier.go
// Fire-and-forget event dispatch. Actual delivery (push, email) is owned by
// the notification service, which consumes the events channel.

package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// Event types this pipeline emits
const (
	EventNewMatch   = "NEW_MATCH"
	EventPoolReady  = "POOL_READY"
	EventMatchEnded = "MATCH_ENDED"
)

const eventChannel = "connect:notifications"

// Notifier dispatches a user-facing event. Implementations must not block
// the caller on delivery.
type Notifier interface {
	NotifyUser(userID, eventType string, payload interface{})
}

// event is the wire format published to the events channel
type event struct {
	UserID    string      `json:"user_id"`
	EventType string      `json:"event_type"`
	Payload   interface{} `json:"payload,omitempty"`
	EmittedAt time.Time   `json:"emitted_at"`
}

// RedisNotifier publishes events to a Redis channel
type RedisNotifier struct {
	client *redis.Client
}

func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func (n *RedisNotifier) NotifyUser(userID, eventType string, payload interface{}) {
	body, err := json.Marshal(event{
		UserID:    userID,
		EventType: eventType,
		Payload:   payload,
		EmittedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Printf("notify: failed to marshal %s event for user %s: %v", eventType, userID, err)
		return
	}

	// Delivery is best-effort; drop on publish failure
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := n.client.Publish(ctx, eventChannel, body).Err(); err != nil {
			log.Printf("notify: failed to publish %s event for user %s: %v", eventType, userID, err)
		}
	}()
}

// LogNotifier logs events instead of dispatching them. Used when Redis is
// not configured and in tests.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) NotifyUser(userID, eventType string, payload interface{}) {
	log.Printf("notify: %s -> user %s", eventType, userID)
}
