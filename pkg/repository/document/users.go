package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Andi3172/fullstack-tic-project/pkg/users"
)

// UsersCollection is the collection holding user records.
const UsersCollection = "users"

type userDocument struct {
	ID                string            `bson:"_id"`
	Email             string            `bson:"email"`
	Role              string            `bson:"role"`
	Profile           profileDocument   `bson:"profile"`
	ShippingAddresses []addressDocument `bson:"shippingAddresses"`
	Metadata          userMetaDocument  `bson:"metadata"`
}

type profileDocument struct {
	FirstName string `bson:"firstName"`
	LastName  string `bson:"lastName"`
	Phone     string `bson:"phone,omitempty"`
}

type addressDocument struct {
	Street  string `bson:"street"`
	City    string `bson:"city"`
	Zip     string `bson:"zip"`
	Country string `bson:"country"`
}

type userMetaDocument struct {
	CreatedAt time.Time `bson:"createdAt"`
	LastLogin time.Time `bson:"lastLogin"`
}

func userToDocument(u *users.User) userDocument {
	addresses := make([]addressDocument, 0, len(u.ShippingAddresses))
	for _, a := range u.ShippingAddresses {
		addresses = append(addresses, addressDocument(a))
	}
	return userDocument{
		ID:                u.UID,
		Email:             u.Email,
		Role:              string(u.Role),
		Profile:           profileDocument(u.Profile),
		ShippingAddresses: addresses,
		Metadata: userMetaDocument{
			CreatedAt: u.Metadata.CreatedAt.UTC(),
			LastLogin: u.Metadata.LastLogin.UTC(),
		},
	}
}

func (d userDocument) toUser() users.User {
	addresses := make([]users.Address, 0, len(d.ShippingAddresses))
	for _, a := range d.ShippingAddresses {
		addresses = append(addresses, users.Address(a))
	}
	return users.User{
		UID:               d.ID,
		Email:             d.Email,
		Role:              users.Role(d.Role),
		Profile:           users.Profile(d.Profile),
		ShippingAddresses: addresses,
		Metadata: users.Metadata{
			CreatedAt: d.Metadata.CreatedAt.UTC(),
			LastLogin: d.Metadata.LastLogin.UTC(),
		},
	}
}

// UserRepository stores users in MongoDB keyed by uid. It implements
// users.Store.
type UserRepository struct {
	exec MongoExecutor
}

// NewUserRepository creates a user repository over exec.
func NewUserRepository(exec MongoExecutor) *UserRepository {
	return &UserRepository{exec: exec}
}

// FindByID returns users.ErrUserNotFound on a miss.
func (r *UserRepository) FindByID(ctx context.Context, uid string) (*users.User, error) {
	m, err := r.exec.FindOne(ctx, UsersCollection, Filter{"_id": uid})
	if err != nil {
		if errors.Is(err, ErrNoDocuments) {
			return nil, users.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user %s: %w", uid, err)
	}
	var doc userDocument
	if err := decode(m, &doc); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", uid, err)
	}
	u := doc.toUser()
	return &u, nil
}

// Create inserts a new user. A duplicate uid yields users.ErrUserExists.
func (r *UserRepository) Create(ctx context.Context, user *users.User) error {
	m, err := encode(userToDocument(user))
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if _, err := r.exec.InsertOne(ctx, UsersCollection, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return users.ErrUserExists
		}
		return fmt.Errorf("insert user %s: %w", user.UID, err)
	}
	return nil
}

// TouchLastLogin sets metadata.lastLogin without reading the record.
func (r *UserRepository) TouchLastLogin(ctx context.Context, uid string, at time.Time) error {
	matched, err := r.exec.UpdateOne(ctx, UsersCollection, Filter{"_id": uid}, map[string]interface{}{
		"$set": bson.M{"metadata.lastLogin": at.UTC()},
	})
	if err != nil {
		return fmt.Errorf("update last login of %s: %w", uid, err)
	}
	if matched == 0 {
		return users.ErrUserNotFound
	}
	return nil
}

// UserIndexes supports looking users up by email.
func UserIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}},
	}
}
