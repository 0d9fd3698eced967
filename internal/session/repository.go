package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository stores sessions in Postgres, one row per identity.
type Repository struct {
	db querier
}

// NewRepository creates a repository backed by pgxpool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("session: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithQuerier allows injecting a mock for tests.
func NewRepositoryWithQuerier(q querier) *Repository {
	return &Repository{db: q}
}

const sessionColumns = `
	identity, channel, state,
	pending_service, pending_date, pending_time, pending_booking_ref,
	reschedule_target_ref, reschedule_new_date, reschedule_new_time,
	last_question, processed_message_ids,
	fail_count, handoff_offered, expired_last_turn, expired_from_state,
	last_reminder_booking_ref, created_at, updated_at`

// GetOrCreate loads the identity's session, creating an idle one on first
// contact. The stored channel is refreshed to the delivery channel of the
// current message.
func (r *Repository) GetOrCreate(ctx context.Context, identity, channel string, now time.Time) (*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE identity = $1`
	s, err := scanSession(r.db.QueryRow(ctx, query, identity))
	if err == nil {
		if channel != "" {
			s.Channel = channel
		}
		return s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	s = New(identity, channel, now)
	insert := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (identity) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, insert,
		s.Identity, s.Channel, s.State,
		s.PendingService, s.PendingDate, s.PendingTime, s.PendingBookingRef,
		s.RescheduleTargetRef, s.RescheduleNewDate, s.RescheduleNewTime,
		s.LastQuestion, s.ProcessedMessageIDs,
		s.FailCount, s.HandoffOffered, s.ExpiredLastTurn, string(s.ExpiredFromState),
		s.LastReminderBookingRef, s.CreatedAt, s.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("session: insert: %w", err)
	}
	return s, nil
}

// Save rewrites the session row.
func (r *Repository) Save(ctx context.Context, s *Session) error {
	query := `
		UPDATE sessions SET
			channel = $2, state = $3,
			pending_service = $4, pending_date = $5, pending_time = $6,
			pending_booking_ref = $7, reschedule_target_ref = $8,
			reschedule_new_date = $9, reschedule_new_time = $10,
			last_question = $11, processed_message_ids = $12,
			fail_count = $13, handoff_offered = $14,
			expired_last_turn = $15, expired_from_state = $16,
			last_reminder_booking_ref = $17, updated_at = $18
		WHERE identity = $1
	`
	if _, err := r.db.Exec(ctx, query,
		s.Identity, s.Channel, s.State,
		s.PendingService, s.PendingDate, s.PendingTime,
		s.PendingBookingRef, s.RescheduleTargetRef,
		s.RescheduleNewDate, s.RescheduleNewTime,
		s.LastQuestion, s.ProcessedMessageIDs,
		s.FailCount, s.HandoffOffered,
		s.ExpiredLastTurn, string(s.ExpiredFromState),
		s.LastReminderBookingRef, s.UpdatedAt,
	); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

// BindReminder points the identity's session at the booking whose reminder
// was just sent, so the next inbound message is read in that context.
func (r *Repository) BindReminder(ctx context.Context, identity, bookingRef string, now time.Time) error {
	query := `UPDATE sessions SET last_reminder_booking_ref = $2, updated_at = $3 WHERE identity = $1`
	if _, err := r.db.Exec(ctx, query, identity, bookingRef, now); err != nil {
		return fmt.Errorf("session: bind reminder: %w", err)
	}
	return nil
}

func scanSession(row pgx.Row) (*Session, error) {
	var s Session
	var expiredFrom string
	if err := row.Scan(
		&s.Identity, &s.Channel, &s.State,
		&s.PendingService, &s.PendingDate, &s.PendingTime, &s.PendingBookingRef,
		&s.RescheduleTargetRef, &s.RescheduleNewDate, &s.RescheduleNewTime,
		&s.LastQuestion, &s.ProcessedMessageIDs,
		&s.FailCount, &s.HandoffOffered, &s.ExpiredLastTurn, &expiredFrom,
		&s.LastReminderBookingRef, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("session: scan: %w", err)
	}
	s.ExpiredFromState = State(expiredFrom)
	return &s, nil
}
