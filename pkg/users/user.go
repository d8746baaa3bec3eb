// Package users keeps a profile record for every identity that signs in.
package users

import (
	"context"
	"errors"
	"time"
)

// Role is the authorization role stored on a user record.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

var (
	// ErrUserNotFound is returned when no user has the requested uid.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned by Store.Create when the uid is taken.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidIdentity is returned when the token lacks a subject or email.
	ErrInvalidIdentity = errors.New("invalid user data from token")
)

// Profile holds the user's contact details. New users start with empty names.
type Profile struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone,omitempty"`
}

// Address is a shipping address.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// Metadata tracks account activity.
type Metadata struct {
	CreatedAt time.Time `json:"createdAt"`
	LastLogin time.Time `json:"lastLogin"`
}

// User is the stored account record, keyed by the identity provider's uid.
type User struct {
	UID               string    `json:"uid"`
	Email             string    `json:"email"`
	Role              Role      `json:"role"`
	Profile           Profile   `json:"profile"`
	ShippingAddresses []Address `json:"shippingAddresses"`
	Metadata          Metadata  `json:"metadata"`
}

// Identity is the authenticated principal taken from a bearer token.
type Identity struct {
	UID   string
	Email string
}

// Store persists users.
type Store interface {
	// FindByID returns ErrUserNotFound on a miss.
	FindByID(ctx context.Context, uid string) (*User, error)
	// Create returns ErrUserExists when the uid is already stored.
	Create(ctx context.Context, user *User) error
	// TouchLastLogin returns ErrUserNotFound when uid does not exist.
	TouchLastLogin(ctx context.Context, uid string, at time.Time) error
}
