package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/cart-sync/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoRepository struct {
	sessions *mongo.Collection
	carts    *mongo.Collection
}

// NewMongoRepository builds the mongo backend and ensures its indexes
// exist. The unique partial index on linked_identity is what enforces
// one-session-per-identity at the storage level.
func NewMongoRepository(ctx context.Context, db *mongo.Database) (Repository, error) {
	m := &mongoRepository{
		sessions: db.Collection("sessions"),
		carts:    db.Collection("carts"),
	}
	if err := m.createIndexes(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *mongoRepository) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	var session domain.Session

	err := m.sessions.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &session, nil
}

func (m *mongoRepository) GetSessionByIdentity(ctx context.Context, identity string) (*domain.Session, error) {
	var session domain.Session

	err := m.sessions.FindOne(ctx, bson.M{"linked_identity": identity}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to get session by identity: %w", err)
	}

	return &session, nil
}

func (m *mongoRepository) PutSession(ctx context.Context, session *domain.Session) error {
	filter := bson.M{"_id": session.ID}
	update := bson.M{"$set": session}
	if session.LinkedIdentity == "" {
		// bson omitempty keeps $set from touching a cleared identity;
		// without the $unset the unique index would keep it bound here.
		update["$unset"] = bson.M{"linked_identity": ""}
	}
	opts := options.Update().SetUpsert(true)

	if _, err := m.sessions.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	return nil
}

func (m *mongoRepository) DeleteSession(ctx context.Context, id string) error {
	result, err := m.sessions.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (m *mongoRepository) ListSessions(ctx context.Context) ([]domain.Session, error) {
	cursor, err := m.sessions.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []domain.Session
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return sessions, nil
}

func (m *mongoRepository) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	var cart domain.Cart

	err := m.carts.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return &cart, nil
}

func (m *mongoRepository) UpsertCart(ctx context.Context, cart *domain.Cart) error {
	now := time.Now()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now

	filter := bson.M{"session_id": cart.SessionID}
	update := bson.M{"$set": cart}
	opts := options.Update().SetUpsert(true)

	if _, err := m.carts.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}

	return nil
}

func (m *mongoRepository) DeleteCart(ctx context.Context, sessionID string) error {
	result, err := m.carts.DeleteOne(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (m *mongoRepository) createIndexes(ctx context.Context) error {
	sessionIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "linked_identity", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"linked_identity": bson.M{"$type": "string"}}),
		},
		{
			Keys: bson.D{{Key: "last_active_at", Value: 1}},
		},
	}
	if _, err := m.sessions.Indexes().CreateMany(ctx, sessionIndexes); err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}

	cartIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}
	if _, err := m.carts.Indexes().CreateMany(ctx, cartIndexes); err != nil {
		return fmt.Errorf("failed to create cart indexes: %w", err)
	}

	return nil
}
