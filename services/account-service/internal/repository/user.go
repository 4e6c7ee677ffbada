package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vasapolrittideah/accounts-api/services/account-service/internal/model"
)

// ErrVersionConflict is returned by SaveUser when the stored document has moved
// past the version the caller read.
var ErrVersionConflict = errors.New("user was modified concurrently")

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByUsernameOrEmail returns every user holding either the username or the email.
	FindByUsernameOrEmail(ctx context.Context, username, email string) ([]*model.User, error)

	// GetUserByToken returns the user whose active token has the given value, one
	// of the given purposes, and expires after now.
	GetUserByToken(ctx context.Context, value string, purposes []model.TokenPurpose, now time.Time) (*model.User, error)

	// SaveUser persists the workflow-owned fields of user if the stored version
	// still equals user.Version, and returns the stored document.
	SaveUser(ctx context.Context, user *model.User) (*model.User, error)

	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}

const userCollection = "users"

type userMongoRepository struct {
	db *mongo.Database
}

func NewUserMongoRepository(ctx context.Context, logger *zerolog.Logger, db *mongo.Database) UserRepository {
	collection := db.Collection(userCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "verification_token.value", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"verification_token.value": bson.M{"$exists": true}}),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create user indexes")
	}

	return &userMongoRepository{db: db}
}

func (r *userMongoRepository) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Version = 1

	result, err := r.db.Collection(userCollection).InsertOne(ctx, user)
	if err != nil {
		return nil, err
	}

	if objectID, ok := result.InsertedID.(bson.ObjectID); ok {
		user.ID = objectID
	} else {
		return nil, errors.New("failed to convert inserted ID to ObjectID")
	}

	return user, nil
}

func (r *userMongoRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, mongo.ErrNoDocuments
	}

	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *userMongoRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *userMongoRepository) FindByUsernameOrEmail(
	ctx context.Context,
	username string,
	email string,
) ([]*model.User, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"username": username},
			bson.M{"email": email},
		},
	}

	cursor, err := r.db.Collection(userCollection).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []*model.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}

	return users, nil
}

func (r *userMongoRepository) GetUserByToken(
	ctx context.Context,
	value string,
	purposes []model.TokenPurpose,
	now time.Time,
) (*model.User, error) {
	return r.findOne(ctx, bson.M{
		"verification_token.value":      value,
		"verification_token.purpose":    bson.M{"$in": purposes},
		"verification_token.expires_at": bson.M{"$gt": now},
	})
}

func (r *userMongoRepository) SaveUser(ctx context.Context, user *model.User) (*model.User, error) {
	set := bson.M{
		"username":       user.Username,
		"email":          user.Email,
		"password_hash":  user.PasswordHash,
		"email_verified": user.EmailVerified,
		"updated_at":     time.Now(),
	}
	unset := bson.M{}

	if user.PendingChange != nil {
		set["pending_change"] = user.PendingChange
	} else {
		unset["pending_change"] = ""
	}
	if user.VerificationToken != nil {
		set["verification_token"] = user.VerificationToken
	} else {
		unset["verification_token"] = ""
	}

	update := bson.M{
		"$set": set,
		"$inc": bson.M{"version": 1},
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	result := r.db.Collection(userCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": user.ID, "version": user.Version},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrVersionConflict
		}
		return nil, err
	}

	var saved model.User
	if err := result.Decode(&saved); err != nil {
		return nil, err
	}

	return &saved, nil
}

func (r *userMongoRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.db.Collection(userCollection).UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"last_login_at": at}},
	)
	return err
}

func (r *userMongoRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	result := r.db.Collection(userCollection).FindOne(ctx, filter)
	if result.Err() != nil {
		return nil, result.Err()
	}

	var user model.User
	if err := result.Decode(&user); err != nil {
		return nil, err
	}

	return &user, nil
}
