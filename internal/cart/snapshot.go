package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-storefront-bff/internal/storefront"
)

// SnapshotRepo is the durable cart copy written by the mirror worker.
type SnapshotRepo struct {
	DB *pgxpool.Pool
}

func NewSnapshotRepo(db *pgxpool.Pool) *SnapshotRepo { return &SnapshotRepo{DB: db} }

func (r *SnapshotRepo) Get(ctx context.Context, sessionID string) (*storefront.Cart, error) {
	var c storefront.Cart
	err := r.DB.QueryRow(ctx, `SELECT cart FROM cart_snapshots WHERE session_id=$1`, sessionID).Scan(&c)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get cart snapshot: %w", err)
	}
	return &c, nil
}

// Upsert stores the cart seen at the given time. An older event never overwrites a newer snapshot.
func (r *SnapshotRepo) Upsert(ctx context.Context, sessionID, email string, c storefront.Cart, at time.Time) error {
	_, err := r.DB.Exec(ctx, `
INSERT INTO cart_snapshots (session_id, email, cart, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (session_id) DO UPDATE SET
	email=EXCLUDED.email,
	cart=EXCLUDED.cart,
	updated_at=EXCLUDED.updated_at
WHERE cart_snapshots.updated_at <= EXCLUDED.updated_at`, sessionID, email, c, at)
	if err != nil {
		return fmt.Errorf("upsert cart snapshot: %w", err)
	}
	return nil
}

func (r *SnapshotRepo) Delete(ctx context.Context, sessionID string) error {
	if _, err := r.DB.Exec(ctx, `DELETE FROM cart_snapshots WHERE session_id=$1`, sessionID); err != nil {
		return fmt.Errorf("delete cart snapshot: %w", err)
	}
	return nil
}
