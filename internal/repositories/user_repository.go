package repositories

import (
	"context"
	"errors"

	"fraudguard/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already taken")
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	// Create creates a new user in the database
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by their ID
	GetByID(ctx context.Context, id uint) (*models.User, error)

	// GetByEmail retrieves a user by exact email
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// List returns users ordered by ID. A limit of zero returns all users.
	List(ctx context.Context, limit int) ([]models.User, error)
}
