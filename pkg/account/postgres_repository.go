package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL record repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

// GetByLoginID retrieves the record for a login
func (r *PostgresRepository) GetByLoginID(ctx context.Context, loginID uuid.UUID) (Record, error) {
	query := `
		SELECT login_id, email, password_hash, totp_secret, pgp_public_key, updated_at
		FROM security_records
		WHERE login_id = $1
	`

	var (
		record       Record
		email        pgtype.Text
		totpSecret   pgtype.Text
		pgpPublicKey pgtype.Text
	)

	err := r.pool.QueryRow(ctx, query, loginID).Scan(
		&record.LoginID,
		&email,
		&record.PasswordHash,
		&totpSecret,
		&pgpPublicKey,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, fmt.Errorf("failed to get security record: %w", err)
	}

	record.Email = email.String
	record.TotpSecret = totpSecret.String
	record.PgpPublicKey = pgpPublicKey.String

	return record, nil
}

// Save upserts the record in a single statement
func (r *PostgresRepository) Save(ctx context.Context, record Record) error {
	query := `
		INSERT INTO security_records (
			login_id, email, password_hash, totp_secret, pgp_public_key, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, NOW()
		)
		ON CONFLICT (login_id) DO UPDATE SET
			email = EXCLUDED.email,
			password_hash = EXCLUDED.password_hash,
			totp_secret = EXCLUDED.totp_secret,
			pgp_public_key = EXCLUDED.pgp_public_key,
			updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query,
		record.LoginID,
		nullText(record.Email),
		record.PasswordHash,
		nullText(record.TotpSecret),
		nullText(record.PgpPublicKey),
	)
	if err != nil {
		return fmt.Errorf("failed to save security record: %w", err)
	}

	return nil
}

func nullText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
