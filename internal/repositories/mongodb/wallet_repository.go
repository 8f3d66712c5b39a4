package mongodb

import (
	"context"
	"time"

	"github.com/cryptolotto/lottery-backend/internal/models"
	"github.com/cryptolotto/lottery-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WalletRepository implements the repositories.WalletRepository interface
type WalletRepository struct {
	collection *mongo.Collection
}

// NewWalletRepository creates a new WalletRepository
func NewWalletRepository(db *mongo.Database) repositories.WalletRepository {
	return &WalletRepository{
		collection: db.Collection("wallets"),
	}
}

// Create creates a new wallet
func (r *WalletRepository) Create(ctx context.Context, wallet *models.Wallet) error {
	wallet.CreatedAt = time.Now()
	wallet.UpdatedAt = time.Now()
	res, err := r.collection.InsertOne(ctx, wallet)
	if err != nil {
		return err
	}
	wallet.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// FindByID finds a wallet by ID
func (r *WalletRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&wallet)
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// FindByAddress finds a wallet by address and network
func (r *WalletRepository) FindByAddress(ctx context.Context, address, network string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.collection.FindOne(ctx, bson.M{"address": address, "network": network}).Decode(&wallet)
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// FindByUserID finds all wallets owned by a user
func (r *WalletRepository) FindByUserID(ctx context.Context, userID primitive.ObjectID) ([]*models.Wallet, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var wallets []*models.Wallet
	if err := cursor.All(ctx, &wallets); err != nil {
		return nil, err
	}
	if wallets == nil {
		wallets = []*models.Wallet{}
	}
	return wallets, nil
}
