package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/staffdesk/internal/domain"
	"github.com/spec-kit/staffdesk/internal/lockout"
)

// CredentialRepository defines persistence access for staff
// credentials, including the atomic lockout and reset-token mutations
// the auth flows depend on.
type CredentialRepository interface {
	Create(ctx context.Context, cred *domain.Credential) error
	Update(ctx context.Context, cred *domain.Credential) error
	GetByID(ctx context.Context, id string) (*domain.Credential, error)
	GetByUsernameOrEmail(ctx context.Context, identifier string) (*domain.Credential, error)
	GetByEmail(ctx context.Context, email string) (*domain.Credential, error)
	List(ctx context.Context) ([]*domain.Credential, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdateGrants(ctx context.Context, id string, grants []domain.PermissionGrant) error

	// Lockout mutations; RecordLoginFailure applies the whole failure
	// transition in one statement so concurrent attempts cannot lose
	// increments.
	RecordLoginFailure(ctx context.Context, id string, threshold int, window time.Duration) (lockout.State, error)
	ClearLockout(ctx context.Context, id string) error

	// Reset-token mutations; ConsumeResetToken atomically swaps the
	// password hash and clears both reset fields, so a consumed token
	// can never match twice.
	SetResetToken(ctx context.Context, id, digest string, expiry time.Time) error
	ConsumeResetToken(ctx context.Context, digest, newPasswordHash string) (string, error)
}

type credentialRepository struct {
	pool *pgxpool.Pool
}

// NewCredentialRepository returns a Postgres-backed implementation.
func NewCredentialRepository(pool *pgxpool.Pool) CredentialRepository {
	return &credentialRepository{pool: pool}
}

const credentialColumns = `
        id, username, email, full_name, password_hash, role, status, permissions,
        failed_login_attempts, lock_until, reset_token_hash, reset_token_expiry,
        last_login, created_at, updated_at`

func (r *credentialRepository) Create(ctx context.Context, cred *domain.Credential) error {
	grants, err := json.Marshal(cred.Permissions)
	if err != nil {
		return err
	}

	const query = `
        INSERT INTO credentials (id, username, email, full_name, password_hash, role, status, permissions)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		cred.ID,
		cred.Username,
		cred.Email,
		cred.FullName,
		cred.PasswordHash,
		cred.Role,
		cred.Status,
		grants,
	).Scan(&cred.CreatedAt, &cred.UpdatedAt)
}

func (r *credentialRepository) Update(ctx context.Context, cred *domain.Credential) error {
	grants, err := json.Marshal(cred.Permissions)
	if err != nil {
		return err
	}

	const query = `
        UPDATE credentials
        SET username=$1, email=$2, full_name=$3, password_hash=$4, role=$5, status=$6,
            permissions=$7, updated_at=NOW()
        WHERE id=$8`

	cmd, err := r.pool.Exec(ctx, query,
		cred.Username,
		cred.Email,
		cred.FullName,
		cred.PasswordHash,
		cred.Role,
		cred.Status,
		grants,
		cred.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *credentialRepository) GetByID(ctx context.Context, id string) (*domain.Credential, error) {
	const query = `SELECT ` + credentialColumns + ` FROM credentials WHERE id=$1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *credentialRepository) GetByUsernameOrEmail(ctx context.Context, identifier string) (*domain.Credential, error) {
	const query = `SELECT ` + credentialColumns + ` FROM credentials WHERE username=$1 OR email=$1`
	return r.scanOne(r.pool.QueryRow(ctx, query, identifier))
}

func (r *credentialRepository) GetByEmail(ctx context.Context, email string) (*domain.Credential, error) {
	const query = `SELECT ` + credentialColumns + ` FROM credentials WHERE email=$1`
	return r.scanOne(r.pool.QueryRow(ctx, query, email))
}

func (r *credentialRepository) List(ctx context.Context) ([]*domain.Credential, error) {
	const query = `SELECT ` + credentialColumns + ` FROM credentials ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creds []*domain.Credential
	for rows.Next() {
		cred, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}
	return creds, rows.Err()
}

func (r *credentialRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE credentials SET last_login=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *credentialRepository) UpdateGrants(ctx context.Context, id string, grants []domain.PermissionGrant) error {
	encoded, err := json.Marshal(grants)
	if err != nil {
		return err
	}
	const query = `UPDATE credentials SET permissions=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, encoded, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// RecordLoginFailure applies the lockout failure transition in a
// single UPDATE: failures while locked change nothing, a lapsed lock
// restarts the count at one, and reaching the threshold sets the lock
// window from the database clock.
func (r *credentialRepository) RecordLoginFailure(ctx context.Context, id string, threshold int, window time.Duration) (lockout.State, error) {
	const query = `
        UPDATE credentials SET
            failed_login_attempts = CASE
                WHEN lock_until IS NOT NULL AND lock_until > NOW() THEN failed_login_attempts
                WHEN lock_until IS NOT NULL THEN 1
                ELSE failed_login_attempts + 1
            END,
            lock_until = CASE
                WHEN lock_until IS NOT NULL AND lock_until > NOW() THEN lock_until
                WHEN lock_until IS NOT NULL THEN CASE WHEN 1 >= $2 THEN NOW() + make_interval(secs => $3) END
                WHEN failed_login_attempts + 1 >= $2 THEN NOW() + make_interval(secs => $3)
            END,
            updated_at = NOW()
        WHERE id=$1
        RETURNING failed_login_attempts, lock_until`

	var state lockout.State
	if err := r.pool.QueryRow(ctx, query, id, threshold, window.Seconds()).Scan(
		&state.FailedAttempts,
		&state.LockUntil,
	); err != nil {
		return lockout.State{}, err
	}
	return state, nil
}

func (r *credentialRepository) ClearLockout(ctx context.Context, id string) error {
	const query = `
        UPDATE credentials SET failed_login_attempts=0, lock_until=NULL, updated_at=NOW()
        WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SetResetToken stores the digest and expiry, replacing any previous
// token so at most one unexpired token exists per credential.
func (r *credentialRepository) SetResetToken(ctx context.Context, id, digest string, expiry time.Time) error {
	const query = `
        UPDATE credentials SET reset_token_hash=$1, reset_token_expiry=$2, updated_at=NOW()
        WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, digest, expiry, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ConsumeResetToken updates the password and clears the reset fields
// in one statement; the WHERE clause only matches an unexpired,
// unconsumed token, so replaying the same plaintext returns no rows.
func (r *credentialRepository) ConsumeResetToken(ctx context.Context, digest, newPasswordHash string) (string, error) {
	const query = `
        UPDATE credentials
        SET password_hash=$2, reset_token_hash=NULL, reset_token_expiry=NULL, updated_at=NOW()
        WHERE reset_token_hash=$1 AND reset_token_expiry > NOW()
        RETURNING id`

	var id string
	if err := r.pool.QueryRow(ctx, query, digest, newPasswordHash).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *credentialRepository) scanOne(row rowScanner) (*domain.Credential, error) {
	var cred domain.Credential
	var grants []byte
	if err := row.Scan(
		&cred.ID,
		&cred.Username,
		&cred.Email,
		&cred.FullName,
		&cred.PasswordHash,
		&cred.Role,
		&cred.Status,
		&grants,
		&cred.FailedLoginAttempts,
		&cred.LockUntil,
		&cred.ResetTokenHash,
		&cred.ResetTokenExpiry,
		&cred.LastLogin,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(grants) > 0 {
		if err := json.Unmarshal(grants, &cred.Permissions); err != nil {
			return nil, err
		}
	}
	return &cred, nil
}
