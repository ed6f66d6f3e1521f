package providers

import (
	"context"

	"workspace-provision/internal/domain"
)

// Directory creates accounts in a directory service.
type Directory interface {
	Name() string
	CreateUser(ctx context.Context, rec domain.UserRecord) (domain.CreatedUser, error)
}
