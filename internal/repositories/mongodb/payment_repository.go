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

// PaymentRepository implements the repositories.PaymentRepository interface
type PaymentRepository struct {
	collection *mongo.Collection
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db *mongo.Database) repositories.PaymentRepository {
	return &PaymentRepository{
		collection: db.Collection("payments"),
	}
}

// Create creates a new payment
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = time.Now()
	res, err := r.collection.InsertOne(ctx, payment)
	if err != nil {
		return err
	}
	payment.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByID finds a payment by ID
func (r *PaymentRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error) {
	var payment models.Payment
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&payment)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindByProviderPaymentID finds every payment row sharing a provider charge id
func (r *PaymentRepository) FindByProviderPaymentID(ctx context.Context, providerPaymentID string) ([]*models.Payment, error) {
	opts := options.Find().SetSort(bson.M{"createdAt": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"providerPaymentId": providerPaymentID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var payments []*models.Payment
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []*models.Payment{}
	}
	return payments, nil
}

// TransitionStatus atomically applies a status transition guarded by the
// stored status. A concurrent redelivery that already applied the transition
// leaves the filter unmatched, so the caller observes false and skips its
// side effects.
func (r *PaymentRepository) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.PaymentStatus, update repositories.PaymentUpdate) (bool, error) {
	set := bson.M{
		"status":    to,
		"updatedAt": time.Now(),
	}
	if update.TransactionHash != "" {
		set["transactionHash"] = update.TransactionHash
	}
	if update.Confirmations > 0 {
		set["confirmations"] = update.Confirmations
	}
	if update.CryptoAmount > 0 {
		set["cryptoAmount"] = update.CryptoAmount
	}
	if update.CryptoCurrency != "" {
		set["cryptoCurrency"] = update.CryptoCurrency
	}
	if update.ConfirmedAt != nil {
		set["confirmedAt"] = *update.ConfirmedAt
	}
	if update.FailedAt != nil {
		set["failedAt"] = *update.FailedAt
	}

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": set},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}
