// Package storage persists captured leads in Postgres.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/funnelbot/bot/funnel"
	"github.com/m3rciful/funnelbot/core/logger"
	"log/slog"
)

// LeadRepository writes leads to the leads table. It implements
// funnel.LeadSink.
type LeadRepository struct {
	db *sqlx.DB
}

// NewLeadRepository wraps the given database handle.
func NewLeadRepository(db *sqlx.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

const insertLead = `
	INSERT INTO leads (chat_id, user_id, username, name, phone, language, captured_at)
	VALUES (:chat_id, :user_id, :username, :name, :phone, :language, :captured_at)`

type leadRow struct {
	ChatID     int64     `db:"chat_id"`
	UserID     int64     `db:"user_id"`
	Username   string    `db:"username"`
	Name       string    `db:"name"`
	Phone      string    `db:"phone"`
	Language   string    `db:"language"`
	CapturedAt time.Time `db:"captured_at"`
}

// Save inserts the lead.
func (r *LeadRepository) Save(ctx context.Context, lead funnel.Lead) error {
	row := leadRow{
		ChatID:     lead.ChatID,
		UserID:     lead.UserID,
		Username:   lead.Username,
		Name:       lead.Name,
		Phone:      lead.Phone,
		Language:   string(lead.Language),
		CapturedAt: lead.CapturedAt,
	}
	if _, err := r.db.NamedExecContext(ctx, insertLead, row); err != nil {
		return fmt.Errorf("storage: insert lead: %w", err)
	}
	logger.Debug(ctx, "leads", "lead.inserted",
		slog.Int64("chat_id", lead.ChatID),
	)
	return nil
}

// Count returns the number of stored leads.
func (r *LeadRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM leads`); err != nil {
		return 0, fmt.Errorf("storage: count leads: %w", err)
	}
	return n, nil
}
