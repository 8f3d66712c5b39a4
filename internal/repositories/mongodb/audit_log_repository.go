package mongodb

import (
	"context"
	"time"

	"github.com/cryptolotto/lottery-backend/internal/models"
	"github.com/cryptolotto/lottery-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AuditLogRepository implements the repositories.AuditLogRepository interface
type AuditLogRepository struct {
	collection *mongo.Collection
}

// NewAuditLogRepository creates a new AuditLogRepository
func NewAuditLogRepository(db *mongo.Database) repositories.AuditLogRepository {
	return &AuditLogRepository{
		collection: db.Collection("audit_logs"),
	}
}

// Create appends an audit record
func (r *AuditLogRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	entry.CreatedAt = time.Now()
	res, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		return err
	}
	entry.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// FindAll finds audit records, newest first, paginated
func (r *AuditLogRepository) FindAll(ctx context.Context, page, limit int) ([]*models.AuditLog, error) {
	opts := options.Find().
		SetSort(bson.M{"createdAt": -1}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []*models.AuditLog
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*models.AuditLog{}
	}
	return entries, nil
}

// Count counts all audit records
func (r *AuditLogRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}
