// Package audit provides the Mongo-backed durability layer Migrate and
// Reflect write to: an append-only trail independent of the engine's
// Milvus-held state, so a tenant reassignment or consolidation run can be
// reconstructed after the fact.
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kart-io/memoryctl/pkg/component/mongodb"
)

// Entry is one audit record.
type Entry struct {
	UserID    string    `bson:"user_id"`
	Action    string    `bson:"action"`
	Detail    string    `bson:"detail"`
	Timestamp time.Time `bson:"timestamp"`
}

// Log implements engine.AuditLog against a Mongo collection.
type Log struct {
	client     *mongodb.Client
	collection string
}

// New wires an audit Log to the given Mongo client and collection name.
func New(client *mongodb.Client, collection string) *Log {
	if collection == "" {
		collection = "audit_log"
	}
	return &Log{client: client, collection: collection}
}

// Record appends one audit entry. Failures here are always best-effort
// from the caller's point of view (Migrate/Reflect never fail on them).
func (l *Log) Record(ctx context.Context, userID, action, detail string) error {
	entry := Entry{
		UserID:    userID,
		Action:    action,
		Detail:    detail,
		Timestamp: time.Now(),
	}
	_, err := l.client.Collection(l.collection).InsertOne(ctx, entry)
	return err
}

// Recent returns a tenant's audit entries, newest-first, capped at limit.
func (l *Log) Recent(ctx context.Context, userID string, limit int64) ([]Entry, error) {
	opts := mongoopts.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit)
	cur, err := l.client.Collection(l.collection).Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var entries []Entry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
