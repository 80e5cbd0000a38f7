package identity

import "context"

// Repository stores practitioner accounts. Lookups only return live
// accounts: active and not soft-deleted.
type Repository interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, userID string) (*User, error)
	Create(ctx context.Context, u *User) error
	List(ctx context.Context) ([]*User, error)
	Deactivate(ctx context.Context, userID string) error
}
