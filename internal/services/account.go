package services

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/BradenHooton/gatehouse/internal/repositories"
)

// Bounds for side effects that must finish even if the caller goes away
const (
	StoreWriteTimeout = 5 * time.Second
	EmailSendTimeout  = 10 * time.Second
)

// AccountRepository defines the credential store operations the services use
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByEmailOrGoogleSubject(ctx context.Context, email, subjectID string) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) (*models.Account, error)
	SetVerificationToken(ctx context.Context, id, token string, expiresAt time.Time) (*models.Account, error)
	MarkVerified(ctx context.Context, id, token string) (*models.Account, error)
	CompleteProfile(ctx context.Context, id, phone, bio string) (*models.Account, error)
	UpdateProfile(ctx context.Context, id string, update repositories.ProfileUpdate) (*models.Account, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	LinkGoogleIdentity(ctx context.Context, id string, link repositories.GoogleLink) (*models.Account, error)
}

// AccountResponse is the public view of an account. It never carries the
// password hash or the verification token.
type AccountResponse struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	FirstName        string     `json:"firstName"`
	LastName         string     `json:"lastName"`
	AuthProvider     string     `json:"authProvider"`
	IsVerified       bool       `json:"isVerified"`
	ProfileCompleted bool       `json:"profileCompleted"`
	Phone            string     `json:"phone,omitempty"`
	Bio              string     `json:"bio,omitempty"`
	AvatarURL        string     `json:"avatarUrl,omitempty"`
	Locale           string     `json:"locale,omitempty"`
	HostedDomain     string     `json:"hostedDomain,omitempty"`
	State            string     `json:"state"`
	LastLoginAt      *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func NewAccountResponse(a *models.Account) *AccountResponse {
	if a == nil {
		return nil
	}
	return &AccountResponse{
		ID:               a.ID,
		Email:            a.Email,
		FirstName:        a.FirstName,
		LastName:         a.LastName,
		AuthProvider:     a.AuthProvider,
		IsVerified:       a.IsVerified,
		ProfileCompleted: a.ProfileCompleted,
		Phone:            a.Phone,
		Bio:              a.Bio,
		AvatarURL:        a.AvatarURL,
		Locale:           a.Locale,
		HostedDomain:     a.HostedDomain,
		State:            string(a.State()),
		LastLoginAt:      a.LastLoginAt,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

// SessionResult is returned by every operation that signs the caller in
type SessionResult struct {
	Token    string
	TTL      time.Duration
	Account  *models.Account
	NextStep string
}

// detached returns a context that ignores caller cancellation but still ends
// after d, so a write started for a request completes even if the client hangs up
func detached(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), d)
}

func internalError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", models.ErrInternalServer, op, err)
}
