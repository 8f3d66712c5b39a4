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

// DrawRepository implements the repositories.DrawRepository interface
type DrawRepository struct {
	collection *mongo.Collection
}

// NewDrawRepository creates a new DrawRepository
func NewDrawRepository(db *mongo.Database) repositories.DrawRepository {
	return &DrawRepository{
		collection: db.Collection("draws"),
	}
}

// Create creates a new draw
func (r *DrawRepository) Create(ctx context.Context, draw *models.Draw) error {
	draw.CreatedAt = time.Now()
	draw.UpdatedAt = time.Now()
	res, err := r.collection.InsertOne(ctx, draw)
	if err != nil {
		return err
	}
	draw.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByID finds a draw by ID
func (r *DrawRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Draw, error) {
	var draw models.Draw
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&draw)
	if err != nil {
		return nil, err
	}
	return &draw, nil
}

// FindAll finds draws, newest first, paginated
func (r *DrawRepository) FindAll(ctx context.Context, page, limit int) ([]*models.Draw, error) {
	opts := options.Find().
		SetSort(bson.M{"scheduledAt": -1}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var draws []*models.Draw
	if err := cursor.All(ctx, &draws); err != nil {
		return nil, err
	}
	if draws == nil {
		draws = []*models.Draw{}
	}
	return draws, nil
}

// FindByStatus finds draws by status
func (r *DrawRepository) FindByStatus(ctx context.Context, status models.DrawStatus) ([]*models.Draw, error) {
	opts := options.Find().SetSort(bson.M{"scheduledAt": -1})
	cursor, err := r.collection.Find(ctx, bson.M{"status": status}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var draws []*models.Draw
	if err := cursor.All(ctx, &draws); err != nil {
		return nil, err
	}
	if draws == nil {
		draws = []*models.Draw{}
	}
	return draws, nil
}

// FindCurrent finds the draw currently selling tickets: the ACTIVE draw with
// the earliest scheduled time, falling back to the next UPCOMING one.
func (r *DrawRepository) FindCurrent(ctx context.Context) (*models.Draw, error) {
	filter := bson.M{"status": bson.M{"$in": []models.DrawStatus{models.DrawStatusActive, models.DrawStatusUpcoming}}}
	opts := options.FindOne().SetSort(bson.D{
		{Key: "status", Value: 1}, // ACTIVE sorts before UPCOMING
		{Key: "scheduledAt", Value: 1},
	})

	var draw models.Draw
	err := r.collection.FindOne(ctx, filter, opts).Decode(&draw)
	if err != nil {
		return nil, err
	}
	return &draw, nil
}

// Update persists a draw's lifecycle fields: status, timestamps, anchor,
// proof and cancel reason. totalPrizePool is excluded: that accumulator is
// owned by IncrementPrizePool, and writing the caller's snapshot back would
// undo a concurrently committed credit.
func (r *DrawRepository) Update(ctx context.Context, draw *models.Draw) error {
	draw.UpdatedAt = time.Now()
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": draw.ID},
		bson.M{"$set": bson.M{
			"status":       draw.Status,
			"startedAt":    draw.StartedAt,
			"completedAt":  draw.CompletedAt,
			"anchorHash":   draw.AnchorHash,
			"anchorHeight": draw.AnchorHeight,
			"winnerProof":  draw.WinnerProof,
			"cancelReason": draw.CancelReason,
			"updatedAt":    draw.UpdatedAt,
		}},
	)
	return err
}

// CompareAndSwapStatus atomically transitions the draw status, guarded by the
// expected current status
func (r *DrawRepository) CompareAndSwapStatus(ctx context.Context, id primitive.ObjectID, from, to models.DrawStatus) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// IncrementPrizePool adds a confirmed payment amount to the draw's pool
func (r *DrawRepository) IncrementPrizePool(ctx context.Context, id primitive.ObjectID, amount float64) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"totalPrizePool": amount},
			"$set": bson.M{"updatedAt": time.Now()},
		},
	)
	return err
}
