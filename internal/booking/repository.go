package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound signals a missing booking row.
var ErrNotFound = errors.New("booking: not found")

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository stores bookings in Postgres.
type Repository struct {
	db querier
}

// NewRepository creates a repository backed by pgxpool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("booking: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithQuerier allows injecting a mock for tests.
func NewRepositoryWithQuerier(q querier) *Repository {
	return &Repository{db: q}
}

const bookingColumns = `
	ref_id, identity, channel, service, date, time, status,
	payment_required, payment_status, deposit_amount_cents, currency,
	checkout_session_id, payment_intent_id, payment_expires_at, paid_at,
	payment_attempts, payment_last_error, calendar_event_id,
	first_reminder_sent, second_reminder_sent, reminder_confirmed, no_show_risk,
	created_at, confirmed_at`

// Create inserts a new booking row.
func (r *Repository) Create(ctx context.Context, b *Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
	`
	if _, err := r.db.Exec(ctx, query,
		b.RefID, b.Identity, b.Channel, b.Service, b.Date, b.Time, b.Status,
		b.PaymentRequired, b.PaymentStatus, b.DepositAmountCents, b.Currency,
		b.CheckoutSessionID, b.PaymentIntentID, b.PaymentExpiresAt, b.PaidAt,
		b.PaymentAttempts, b.PaymentLastError, b.CalendarEventID,
		b.FirstReminderSent, b.SecondReminderSent, b.ReminderConfirmed, b.NoShowRisk,
		b.CreatedAt, b.ConfirmedAt,
	); err != nil {
		return fmt.Errorf("booking: insert: %w", err)
	}
	return nil
}

// Update rewrites all mutable fields of an existing booking.
func (r *Repository) Update(ctx context.Context, b *Booking) error {
	query := `
		UPDATE bookings SET
			service = $2, date = $3, time = $4, status = $5,
			payment_required = $6, payment_status = $7, deposit_amount_cents = $8,
			currency = $9, checkout_session_id = $10, payment_intent_id = $11,
			payment_expires_at = $12, paid_at = $13, payment_attempts = $14,
			payment_last_error = $15, calendar_event_id = $16,
			first_reminder_sent = $17, second_reminder_sent = $18,
			reminder_confirmed = $19, no_show_risk = $20, confirmed_at = $21
		WHERE ref_id = $1
	`
	ct, err := r.db.Exec(ctx, query,
		b.RefID, b.Service, b.Date, b.Time, b.Status,
		b.PaymentRequired, b.PaymentStatus, b.DepositAmountCents,
		b.Currency, b.CheckoutSessionID, b.PaymentIntentID,
		b.PaymentExpiresAt, b.PaidAt, b.PaymentAttempts,
		b.PaymentLastError, b.CalendarEventID,
		b.FirstReminderSent, b.SecondReminderSent,
		b.ReminderConfirmed, b.NoShowRisk, b.ConfirmedAt,
	)
	if err != nil {
		return fmt.Errorf("booking: update: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByRef loads a booking by reference id, scoped to the identity.
func (r *Repository) GetByRef(ctx context.Context, identity, refID string) (*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE identity = $1 AND ref_id = $2`
	return r.one(r.db.QueryRow(ctx, query, identity, refID))
}

// LatestWithStatus returns the newest booking with the given status for the
// identity, or ErrNotFound.
func (r *Repository) LatestWithStatus(ctx context.Context, identity string, status Status) (*Booking, error) {
	query := `
		SELECT ` + bookingColumns + ` FROM bookings
		WHERE identity = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.one(r.db.QueryRow(ctx, query, identity, status))
}

// Latest returns the newest booking of any status for the identity.
func (r *Repository) Latest(ctx context.Context, identity string) (*Booking, error) {
	query := `
		SELECT ` + bookingColumns + ` FROM bookings
		WHERE identity = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.one(r.db.QueryRow(ctx, query, identity))
}

// Pending returns the identity's PENDING booking, or ErrNotFound. At most one
// PENDING row exists per identity.
func (r *Repository) Pending(ctx context.Context, identity string) (*Booking, error) {
	return r.LatestWithStatus(ctx, identity, StatusPending)
}

// CancelPending marks every PENDING booking for the identity CANCELLED.
// Creating a new draft calls this first, keeping the one-PENDING invariant.
func (r *Repository) CancelPending(ctx context.Context, identity string) (int64, error) {
	query := `UPDATE bookings SET status = $2 WHERE identity = $1 AND status = $3`
	ct, err := r.db.Exec(ctx, query, identity, StatusCancelled, StatusPending)
	if err != nil {
		return 0, fmt.Errorf("booking: cancel pending: %w", err)
	}
	return ct.RowsAffected(), nil
}

// SlotTaken reports whether a live booking occupies the exact slot.
func (r *Repository) SlotTaken(ctx context.Context, date, hhmm string) (bool, error) {
	query := `SELECT 1 FROM bookings WHERE date = $1 AND time = $2 AND status = ANY($3) LIMIT 1`
	var one int
	err := r.db.QueryRow(ctx, query, date, hhmm, []string{string(StatusPending), string(StatusConfirmed)}).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("booking: slot check: %w", err)
	}
	return true, nil
}

// ListConfirmed returns all CONFIRMED bookings, oldest first. Used by the
// reminder sweep.
func (r *Repository) ListConfirmed(ctx context.Context) ([]Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE status = $1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("booking: list confirmed: %w", err)
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("booking: list confirmed: %w", err)
	}
	return out, nil
}

func (r *Repository) one(row pgx.Row) (*Booking, error) {
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	if err := row.Scan(
		&b.RefID, &b.Identity, &b.Channel, &b.Service, &b.Date, &b.Time, &b.Status,
		&b.PaymentRequired, &b.PaymentStatus, &b.DepositAmountCents, &b.Currency,
		&b.CheckoutSessionID, &b.PaymentIntentID, &b.PaymentExpiresAt, &b.PaidAt,
		&b.PaymentAttempts, &b.PaymentLastError, &b.CalendarEventID,
		&b.FirstReminderSent, &b.SecondReminderSent, &b.ReminderConfirmed, &b.NoShowRisk,
		&b.CreatedAt, &b.ConfirmedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("booking: scan: %w", err)
	}
	return &b, nil
}
