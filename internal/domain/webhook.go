package domain

import "time"

// WebhookEvent is a verified inbound webhook, ready for dispatch.
type WebhookEvent struct {
	ID         string    `json:"id" bson:"_id"`
	Topic      string    `json:"topic" bson:"topic"`
	Shop       string    `json:"shop" bson:"shop"`
	Payload    []byte    `json:"payload" bson:"payload"`
	Verified   bool      `json:"verified" bson:"verified"`
	ReceivedAt time.Time `json:"received_at" bson:"received_at"`
}
