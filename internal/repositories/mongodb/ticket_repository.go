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

// TicketRepository implements the repositories.TicketRepository interface
type TicketRepository struct {
	collection *mongo.Collection
}

// NewTicketRepository creates a new TicketRepository
func NewTicketRepository(db *mongo.Database) repositories.TicketRepository {
	return &TicketRepository{
		collection: db.Collection("tickets"),
	}
}

// Create creates a new ticket
func (r *TicketRepository) Create(ctx context.Context, ticket *models.Ticket) error {
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = time.Now()
	res, err := r.collection.InsertOne(ctx, ticket)
	if err != nil {
		return err
	}
	ticket.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByID finds a ticket by ID
func (r *TicketRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&ticket)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// FindByDrawID finds a draw's tickets, paginated
func (r *TicketRepository) FindByDrawID(ctx context.Context, drawID primitive.ObjectID, page, limit int) ([]*models.Ticket, error) {
	opts := options.Find().
		SetSort(bson.M{"purchasedAt": 1}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, bson.M{"drawId": drawID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tickets []*models.Ticket
	if err := cursor.All(ctx, &tickets); err != nil {
		return nil, err
	}
	if tickets == nil {
		tickets = []*models.Ticket{}
	}
	return tickets, nil
}

// FindEligibleByDrawID finds the draw's ACTIVE tickets ordered by purchase
// time ascending. This ordering is what the winner index resolves against.
func (r *TicketRepository) FindEligibleByDrawID(ctx context.Context, drawID primitive.ObjectID) ([]*models.Ticket, error) {
	filter := bson.M{"drawId": drawID, "status": models.TicketStatusActive}
	opts := options.Find().SetSort(bson.M{"purchasedAt": 1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tickets []*models.Ticket
	if err := cursor.All(ctx, &tickets); err != nil {
		return nil, err
	}
	if tickets == nil {
		tickets = []*models.Ticket{}
	}
	return tickets, nil
}

// CountByDrawID counts all tickets in a draw
func (r *TicketRepository) CountByDrawID(ctx context.Context, drawID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"drawId": drawID})
}

// CompareAndSwapStatus atomically transitions a ticket's status, guarded by
// the expected current status
func (r *TicketRepository) CompareAndSwapStatus(ctx context.Context, id primitive.ObjectID, from, to models.TicketStatus) (bool, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// MarkWinner marks the winning ticket
func (r *TicketRepository) MarkWinner(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.TicketStatusActive},
		bson.M{"$set": bson.M{
			"status":    models.TicketStatusWon,
			"isWinner":  true,
			"updatedAt": time.Now(),
		}},
	)
	return err
}

// MarkLosers marks every other eligible ticket in the draw as LOST
func (r *TicketRepository) MarkLosers(ctx context.Context, drawID, winnerID primitive.ObjectID) error {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{
			"drawId": drawID,
			"_id":    bson.M{"$ne": winnerID},
			"status": models.TicketStatusActive,
		},
		bson.M{"$set": bson.M{"status": models.TicketStatusLost, "updatedAt": time.Now()}},
	)
	return err
}

// CancelByDrawID cascades CANCELLED to every non-terminal ticket in the draw
func (r *TicketRepository) CancelByDrawID(ctx context.Context, drawID primitive.ObjectID) error {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{
			"drawId": drawID,
			"status": bson.M{"$in": []models.TicketStatus{models.TicketStatusPendingPayment, models.TicketStatusActive}},
		},
		bson.M{"$set": bson.M{"status": models.TicketStatusCancelled, "updatedAt": time.Now()}},
	)
	return err
}
