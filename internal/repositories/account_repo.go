package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BradenHooton/gatehouse/internal/database"
	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const accountColumns = `id, email, password_hash, first_name, last_name, auth_provider,
	google_subject_id, facebook_subject_id, is_verified, verification_token, verification_expires_at,
	profile_completed, phone, bio, avatar_url, locale, hosted_domain, is_active, last_login_at,
	created_at, updated_at`

// AccountRepository is the Postgres-backed credential store. Every mutation is a
// single statement, so each one is atomic on its own row.
type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{pool: db.Pool}
}

// GoogleLink carries the fields refreshed on every Google sign-in
type GoogleLink struct {
	SubjectID    string
	AvatarURL    string
	Locale       string
	HostedDomain string
	LoginAt      time.Time
}

// ProfileUpdate carries editable profile fields
type ProfileUpdate struct {
	FirstName string
	LastName  string
	Phone     string
	Bio       string
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var a models.Account
	var passwordHash *string

	err := scanner.Scan(
		&a.ID, &a.Email, &passwordHash, &a.FirstName, &a.LastName, &a.AuthProvider,
		&a.GoogleSubjectID, &a.FacebookSubjectID, &a.IsVerified, &a.VerificationToken, &a.VerificationExpiresAt,
		&a.ProfileCompleted, &a.Phone, &a.Bio, &a.AvatarURL, &a.Locale, &a.HostedDomain, &a.IsActive, &a.LastLoginAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if passwordHash != nil {
		a.PasswordHash = *passwordHash
	}

	return &a, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccountRow(r.pool.QueryRow(ctx, query, id))
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE lower(email) = lower($1)`
	return scanAccountRow(r.pool.QueryRow(ctx, query, strings.TrimSpace(email)))
}

// FindByEmailOrGoogleSubject prefers a subject match over an email match so a
// re-used email cannot shadow an existing Google link
func (r *AccountRepository) FindByEmailOrGoogleSubject(ctx context.Context, email, subjectID string) (*models.Account, error) {
	query := `
		SELECT ` + accountColumns + ` FROM accounts
		WHERE lower(email) = lower($1) OR google_subject_id = $2
		ORDER BY (google_subject_id IS NOT DISTINCT FROM $2) DESC
		LIMIT 1
	`
	return scanAccountRow(r.pool.QueryRow(ctx, query, email, subjectID))
}

// Create inserts a new account. A concurrent insert of the same email loses
// with models.ErrConflict through the unique index.
func (r *AccountRepository) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	a.ID = uuid.New().String()
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))

	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	if a.AuthProvider == "" {
		a.AuthProvider = models.AuthProviderLocal
	}

	var passwordHash *string
	if a.PasswordHash != "" {
		passwordHash = &a.PasswordHash
	}

	query := `
		INSERT INTO accounts (id, email, password_hash, first_name, last_name, auth_provider,
			google_subject_id, facebook_subject_id, is_verified, verification_token, verification_expires_at,
			profile_completed, phone, bio, avatar_url, locale, hosted_domain, is_active, last_login_at,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING ` + accountColumns

	created, err := scanAccountRow(r.pool.QueryRow(ctx, query,
		a.ID, a.Email, passwordHash, a.FirstName, a.LastName, a.AuthProvider,
		a.GoogleSubjectID, a.FacebookSubjectID, a.IsVerified, a.VerificationToken, a.VerificationExpiresAt,
		a.ProfileCompleted, a.Phone, a.Bio, a.AvatarURL, a.Locale, a.HostedDomain, a.IsActive, a.LastLoginAt,
		a.CreatedAt, a.UpdatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return created, nil
}

func (r *AccountRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) (*models.Account, error) {
	query := `UPDATE accounts SET last_login_at = $1, updated_at = NOW() WHERE id = $2 RETURNING ` + accountColumns
	return scanAccountRow(r.pool.QueryRow(ctx, query, at, id))
}

// SetVerificationToken overwrites any outstanding token, invalidating it.
// Verified accounts are left untouched and yield models.ErrNotFound.
func (r *AccountRepository) SetVerificationToken(ctx context.Context, id, token string, expiresAt time.Time) (*models.Account, error) {
	query := `
		UPDATE accounts SET verification_token = $1, verification_expires_at = $2, updated_at = NOW()
		WHERE id = $3 AND NOT is_verified
		RETURNING ` + accountColumns
	return scanAccountRow(r.pool.QueryRow(ctx, query, token, expiresAt, id))
}

// MarkVerified is a compare-and-set on the stored token. A rotated token or an
// already verified account yields models.ErrNotFound.
func (r *AccountRepository) MarkVerified(ctx context.Context, id, token string) (*models.Account, error) {
	query := `
		UPDATE accounts SET is_verified = TRUE, verification_token = NULL, verification_expires_at = NULL, updated_at = NOW()
		WHERE id = $1 AND verification_token = $2 AND NOT is_verified
		RETURNING ` + accountColumns
	return scanAccountRow(r.pool.QueryRow(ctx, query, id, token))
}

// CompleteProfile moves a verified account to active. It yields
// models.ErrNotFound when the account is unverified or already complete.
func (r *AccountRepository) CompleteProfile(ctx context.Context, id, phone, bio string) (*models.Account, error) {
	query := `
		UPDATE accounts SET phone = $1, bio = $2, profile_completed = TRUE, updated_at = NOW()
		WHERE id = $3 AND is_verified AND NOT profile_completed
		RETURNING ` + accountColumns
	return scanAccountRow(r.pool.QueryRow(ctx, query, phone, bio, id))
}

func (r *AccountRepository) UpdateProfile(ctx context.Context, id string, p ProfileUpdate) (*models.Account, error) {
	query := `
		UPDATE accounts SET first_name = $1, last_name = $2, phone = $3, bio = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING ` + accountColumns
	return scanAccountRow(r.pool.QueryRow(ctx, query, p.FirstName, p.LastName, p.Phone, p.Bio, id))
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE accounts SET password_hash = $1, updated_at = NOW() WHERE id = $2 AND password_hash IS NOT NULL`

	result, err := r.pool.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// LinkGoogleIdentity records the Google subject on an account and refreshes
// provider-sourced fields. Google has vouched for the address, so a pending
// local verification is resolved as well. An account bound to a different
// subject is not touched and yields models.ErrNotFound.
func (r *AccountRepository) LinkGoogleIdentity(ctx context.Context, id string, link GoogleLink) (*models.Account, error) {
	query := `
		UPDATE accounts SET
			google_subject_id = $1,
			avatar_url = COALESCE(NULLIF($2, ''), avatar_url),
			locale = COALESCE(NULLIF($3, ''), locale),
			hosted_domain = COALESCE(NULLIF($4, ''), hosted_domain),
			last_login_at = $5,
			is_verified = TRUE,
			verification_token = NULL,
			verification_expires_at = NULL,
			updated_at = NOW()
		WHERE id = $6 AND (google_subject_id IS NULL OR google_subject_id = $1)
		RETURNING ` + accountColumns
	return scanAccountRow(r.pool.QueryRow(ctx, query,
		link.SubjectID, link.AvatarURL, link.Locale, link.HostedDomain, link.LoginAt, id,
	))
}
