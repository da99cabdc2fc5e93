package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-storefront-bff/internal/storefront"
)

var ErrNotFound = errors.New("session not found")

type Store interface {
	Get(ctx context.Context, id string) (storefront.Session, error)
	// FindByToken returns the most recently updated session holding token.
	FindByToken(ctx context.Context, token string) (storefront.Session, error)
	Save(ctx context.Context, s storefront.Session) error
	Delete(ctx context.Context, id string) error
	ListStale(ctx context.Context, q StaleQuery) ([]storefront.Session, error)
	// ListExpired returns sessions not seen since before.
	ListExpired(ctx context.Context, before time.Time, limit int) ([]storefront.Session, error)
}

// StaleQuery selects one page of sessions validated before Before and seen after SeenAfter,
// ordered by (validated_at, id) and starting strictly after the cursor.
type StaleQuery struct {
	Before         time.Time
	SeenAfter      time.Time
	AfterValidated time.Time
	AfterID        string
	Limit          int
}

// TokenHash is the lookup key stored next to a session's JWT.
func TokenHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

type Repo struct {
	DB *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo { return &Repo{DB: db} }

const sessionColumns = `id, jwt, full_name, email, expires_at, validated_at, last_seen_at, created_at, updated_at`

func scanSession(row pgx.Row) (storefront.Session, error) {
	var (
		s   storefront.Session
		exp *time.Time
	)
	if err := row.Scan(&s.ID, &s.JWT, &s.FullName, &s.Email, &exp, &s.ValidatedAt, &s.LastSeenAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return storefront.Session{}, err
	}
	if exp != nil {
		s.ExpiresAt = *exp
	}
	return s, nil
}

func (r *Repo) one(ctx context.Context, query string, args ...any) (storefront.Session, error) {
	s, err := scanSession(r.DB.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return storefront.Session{}, ErrNotFound
	}
	if err != nil {
		return storefront.Session{}, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

func (r *Repo) Get(ctx context.Context, id string) (storefront.Session, error) {
	return r.one(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id=$1`, id)
}

func (r *Repo) FindByToken(ctx context.Context, token string) (storefront.Session, error) {
	return r.one(ctx, `
SELECT `+sessionColumns+` FROM sessions
WHERE jwt_hash=$1
ORDER BY updated_at DESC
LIMIT 1`, TokenHash(token))
}

func (r *Repo) Save(ctx context.Context, s storefront.Session) error {
	var exp *time.Time
	if !s.ExpiresAt.IsZero() {
		exp = &s.ExpiresAt
	}
	_, err := r.DB.Exec(ctx, `
INSERT INTO sessions (`+sessionColumns+`, jwt_hash)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
	jwt=EXCLUDED.jwt,
	jwt_hash=EXCLUDED.jwt_hash,
	full_name=EXCLUDED.full_name,
	email=EXCLUDED.email,
	expires_at=EXCLUDED.expires_at,
	validated_at=EXCLUDED.validated_at,
	last_seen_at=EXCLUDED.last_seen_at,
	updated_at=EXCLUDED.updated_at`,
		s.ID, s.JWT, s.FullName, s.Email, exp, s.ValidatedAt, s.LastSeenAt, s.CreatedAt, s.UpdatedAt, TokenHash(s.JWT))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	if _, err := r.DB.Exec(ctx, `DELETE FROM sessions WHERE id=$1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *Repo) ListStale(ctx context.Context, q StaleQuery) ([]storefront.Session, error) {
	return r.list(ctx, "list stale sessions", `
SELECT `+sessionColumns+` FROM sessions
WHERE validated_at < $1
  AND last_seen_at >= $2
  AND (validated_at, id) > ($3, $4)
ORDER BY validated_at, id
LIMIT $5`, q.Before, q.SeenAfter, q.AfterValidated, q.AfterID, q.Limit)
}

func (r *Repo) ListExpired(ctx context.Context, before time.Time, limit int) ([]storefront.Session, error) {
	return r.list(ctx, "list expired sessions", `
SELECT `+sessionColumns+` FROM sessions
WHERE last_seen_at < $1
ORDER BY last_seen_at
LIMIT $2`, before, limit)
}

func (r *Repo) list(ctx context.Context, what, query string, args ...any) ([]storefront.Session, error) {
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	defer rows.Close()

	var out []storefront.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
