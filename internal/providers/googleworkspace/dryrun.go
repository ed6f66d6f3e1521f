package googleworkspace

import (
	"context"

	"github.com/rs/zerolog"

	"workspace-provision/internal/devutil"
	"workspace-provision/internal/domain"
	"workspace-provision/internal/providers"
	"workspace-provision/internal/record"
)

var _ providers.Directory = DryRun{}

// DryRun builds the insert request and logs it instead of calling the API.
type DryRun struct {
	DefaultOrgUnit string
	Logger         zerolog.Logger
}

func (d DryRun) Name() string { return providerName + " (dry-run)" }

func (d DryRun) CreateUser(ctx context.Context, rec domain.UserRecord) (domain.CreatedUser, error) {
	if err := record.Validate(rec); err != nil {
		return domain.CreatedUser{}, err
	}
	user := BuildUser(rec, "dry-run", d.DefaultOrgUnit)

	d.Logger.Info().
		Interface("request", devutil.Redact(user, "password")).
		Msg("[DRY-RUN] would create user")

	return domain.CreatedUser{
		PrimaryEmail: user.PrimaryEmail,
		OrgUnitPath:  user.OrgUnitPath,
	}, nil
}
