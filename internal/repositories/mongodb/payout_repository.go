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

// PayoutRepository implements the repositories.PayoutRepository interface
type PayoutRepository struct {
	collection *mongo.Collection
}

// NewPayoutRepository creates a new PayoutRepository
func NewPayoutRepository(db *mongo.Database) repositories.PayoutRepository {
	return &PayoutRepository{
		collection: db.Collection("payouts"),
	}
}

// Create creates a new payout
func (r *PayoutRepository) Create(ctx context.Context, payout *models.Payout) error {
	payout.CreatedAt = time.Now()
	payout.UpdatedAt = time.Now()
	res, err := r.collection.InsertOne(ctx, payout)
	if err != nil {
		return err
	}
	payout.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByID finds a payout by ID
func (r *PayoutRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Payout, error) {
	var payout models.Payout
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&payout)
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

// FindByDrawID finds the payout for a completed draw
func (r *PayoutRepository) FindByDrawID(ctx context.Context, drawID primitive.ObjectID) (*models.Payout, error) {
	var payout models.Payout
	err := r.collection.FindOne(ctx, bson.M{"drawId": drawID}).Decode(&payout)
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

// FindByStatus finds payouts by status, oldest first, paginated
func (r *PayoutRepository) FindByStatus(ctx context.Context, status models.PayoutStatus, page, limit int) ([]*models.Payout, error) {
	opts := options.Find().
		SetSort(bson.M{"createdAt": 1}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, bson.M{"status": status}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var payouts []*models.Payout
	if err := cursor.All(ctx, &payouts); err != nil {
		return nil, err
	}
	if payouts == nil {
		payouts = []*models.Payout{}
	}
	return payouts, nil
}

// RecordTransaction advances a PENDING payout to COMPLETED or FAILED with the
// disbursement transaction hash. Guarded by the PENDING status so a payout is
// recorded at most once.
func (r *PayoutRepository) RecordTransaction(ctx context.Context, id primitive.ObjectID, txHash string, status models.PayoutStatus) (bool, error) {
	now := time.Now()
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.PayoutStatusPending},
		bson.M{"$set": bson.M{
			"status":          status,
			"transactionHash": txHash,
			"recordedAt":      now,
			"updatedAt":       now,
		}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}
