package repository

import (
	"context"
	"fmt"

	"shopify-app-gateway/internal/domain"
	"shopify-app-gateway/internal/ports"

	"go.mongodb.org/mongo-driver/mongo"
)

// MongoWebhookLog persists an audit trail of verified webhook events.
type MongoWebhookLog struct {
	collection *mongo.Collection
}

// NewMongoWebhookLog creates a webhook log backed by the given database.
func NewMongoWebhookLog(db *mongo.Database) *MongoWebhookLog {
	return &MongoWebhookLog{
		collection: db.Collection("webhook_events"),
	}
}

// LogWebhook inserts the event. Payloads are stored raw; no access tokens
// ever pass through webhook bodies.
func (r *MongoWebhookLog) LogWebhook(ctx context.Context, event *domain.WebhookEvent) error {
	if _, err := r.collection.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("failed to log webhook: %w", err)
	}
	return nil
}

// NopWebhookLog discards events. Used when no audit database is configured.
type NopWebhookLog struct{}

func (NopWebhookLog) LogWebhook(ctx context.Context, event *domain.WebhookEvent) error {
	return nil
}

var (
	_ ports.WebhookLog = (*MongoWebhookLog)(nil)
	_ ports.WebhookLog = NopWebhookLog{}
)
