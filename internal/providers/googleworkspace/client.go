package googleworkspace

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	admin "google.golang.org/api/admin/directory/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"workspace-provision/internal/apperr"
	"workspace-provision/internal/domain"
	"workspace-provision/internal/httpx"
	"workspace-provision/internal/providers"
	"workspace-provision/internal/record"
)

const (
	providerName = "google-workspace"

	// MyCustomer addresses the customer the credentials belong to.
	MyCustomer = "my_customer"
)

var _ providers.Directory = (*Client)(nil)

// Scopes are requested when provisioning.
var Scopes = []string{admin.AdminDirectoryUserScope}

type Options struct {
	// HTTPClient must already carry credentials.
	HTTPClient     *http.Client
	Endpoint       string
	DefaultOrgUnit string
	PasswordLength int
	Logger         zerolog.Logger
}

type Client struct {
	svc            *admin.Service
	defaultOrgUnit string
	passwordLength int
	newPassword    func(int) (string, error)
	logger         zerolog.Logger
}

func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.HTTPClient == nil {
		return nil, errors.New("googleworkspace: missing authenticated http client")
	}
	clientOpts := []option.ClientOption{option.WithHTTPClient(opts.HTTPClient)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}
	svc, err := admin.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("googleworkspace: new service: %w", err)
	}
	return &Client{
		svc:            svc,
		defaultOrgUnit: opts.DefaultOrgUnit,
		passwordLength: opts.PasswordLength,
		newPassword:    GeneratePassword,
		logger:         opts.Logger,
	}, nil
}

func (c *Client) Name() string { return providerName }

// BuildUser projects rec onto the Admin SDK user resource. Optional fields
// that are absent stay zero-valued, and the SDK omits zero values from the
// request body.
func BuildUser(rec domain.UserRecord, password, defaultOrgUnit string) *admin.User {
	u := &admin.User{
		PrimaryEmail: rec.Get(domain.KeyPrimaryEmail),
		Name: &admin.UserName{
			GivenName:  rec.Get(domain.KeyGivenName),
			FamilyName: rec.Get(domain.KeyFamilyName),
		},
		Password:                  password,
		ChangePasswordAtNextLogin: true,
		RecoveryEmail:             rec.Get(domain.KeyRecoveryEmail),
		RecoveryPhone:             rec.Get(domain.KeyRecoveryPhone),
		OrgUnitPath:               rec.Get(domain.KeyOrgUnitPath),
	}
	if u.OrgUnitPath == "" {
		u.OrgUnitPath = defaultOrgUnit
	}
	return u
}

// CreateUser validates rec, generates a one-time secret and inserts the user.
// The secret is not returned: the account holder sets a password through the
// provider's recovery flow.
func (c *Client) CreateUser(ctx context.Context, rec domain.UserRecord) (domain.CreatedUser, error) {
	if err := record.Validate(rec); err != nil {
		return domain.CreatedUser{}, err
	}

	pw, err := c.newPassword(c.passwordLength)
	if err != nil {
		return domain.CreatedUser{}, fmt.Errorf("googleworkspace: generate password: %w", err)
	}
	user := BuildUser(rec, pw, c.defaultOrgUnit)

	c.logger.Info().Str("primary_email", user.PrimaryEmail).Msg("attempting to create user")
	res, err := c.svc.Users.Insert(user).Context(ctx).Do()
	if err != nil {
		return domain.CreatedUser{}, classify(err)
	}

	return domain.CreatedUser{
		ID:           res.Id,
		PrimaryEmail: res.PrimaryEmail,
		OrgUnitPath:  res.OrgUnitPath,
	}, nil
}

// ListUsers returns up to max users of the credentials' own customer.
func (c *Client) ListUsers(ctx context.Context, max int) ([]*admin.User, error) {
	call := c.svc.Users.List().Customer(MyCustomer).OrderBy("email").Context(ctx)
	if max > 0 {
		call = call.MaxResults(int64(max))
	}
	res, err := call.Do()
	if err != nil {
		return nil, classify(err)
	}
	return res.Users, nil
}

func classify(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return fmt.Errorf("googleworkspace: %w", err)
	}

	rej := &apperr.RemoteRejection{
		StatusCode: gerr.Code,
		Message:    gerr.Message,
	}
	if gerr.Body != "" {
		rej.Reason = gjson.Get(gerr.Body, "error.errors.0.reason").String()
		if rej.Reason == "" {
			rej.Reason = gjson.Get(gerr.Body, "error.status").String()
		}
		if rej.Message == "" {
			rej.Message = gjson.Get(gerr.Body, "error.message").String()
		}
		if rej.Message == "" {
			rej.Message = httpx.Snippet([]byte(gerr.Body), 300)
		}
	}
	if rej.Reason == "" && len(gerr.Errors) > 0 {
		rej.Reason = gerr.Errors[0].Reason
	}
	return apperr.Remote("directory service rejected the request", rej)
}
