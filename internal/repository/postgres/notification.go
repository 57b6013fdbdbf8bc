package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/escrowledger/internal/models"
)

type NotificationRepo struct {
	DB DBTX
}

const notificationColumns = `id, profile_id, kind, message, created_at, sent_at`

const createNotification = `-- name: CreateNotification
INSERT INTO notifications (id, profile_id, kind, message, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + notificationColumns

func (r *NotificationRepo) CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	rows, _ := r.DB.Query(ctx, createNotification, n.ID, n.ProfileID, n.Kind, n.Message, n.CreatedAt)
	created, err := pgx.CollectOneRow(rows, rowToNotification)
	if err != nil {
		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

// Claimed rows are skipped by concurrent claimers until reclaim interval passes
const claimPending = `-- name: ClaimPendingNotifications
UPDATE notifications
SET claimed_at = clock_timestamp()
WHERE id IN (
	SELECT id FROM notifications
	WHERE sent_at IS NULL AND (claimed_at IS NULL OR claimed_at < clock_timestamp() - make_interval(secs => $2))
	ORDER BY created_at
	LIMIT $1
	FOR UPDATE SKIP LOCKED
)
RETURNING ` + notificationColumns

func (r *NotificationRepo) ClaimPending(ctx context.Context, limit int, reclaimAfter time.Duration) ([]models.Notification, error) {
	rows, _ := r.DB.Query(ctx, claimPending, limit, reclaimAfter.Seconds())
	ns, err := pgx.CollectRows(rows, rowToNotification)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return ns, nil
}

const markSent = `-- name: MarkNotificationSent
UPDATE notifications
SET sent_at = clock_timestamp()
WHERE id = $1 AND sent_at IS NULL
`

func (r *NotificationRepo) MarkSent(ctx context.Context, id uuid.UUID) error {
	_, err := r.DB.Exec(ctx, markSent, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

const listNotifications = `-- name: ListNotifications
SELECT ` + notificationColumns + ` FROM notifications
WHERE profile_id = $1
ORDER BY created_at DESC
`

func (r *NotificationRepo) ListNotifications(ctx context.Context, profileID uuid.UUID) ([]models.Notification, error) {
	rows, _ := r.DB.Query(ctx, listNotifications, profileID)
	ns, err := pgx.CollectRows(rows, rowToNotification)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return ns, nil
}

func rowToNotification(row pgx.CollectableRow) (models.Notification, error) {
	var n models.Notification
	err := row.Scan(&n.ID, &n.ProfileID, &n.Kind, &n.Message, &n.CreatedAt, &n.SentAt)
	return n, err
}
