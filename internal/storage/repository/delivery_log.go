package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/magabrotheeeer/subscription-notifier/internal/models"
)

const defaultLogsLimit = 50

// CreateDeliveryLog фиксирует попытку отправки со статусом pending и возвращает id записи.
func (s *Storage) CreateDeliveryLog(ctx context.Context, entry models.DeliveryLog) (int64, error) {
	const op = "storage.CreateDeliveryLog"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var id int64
	err := s.DB.QueryRowContext(ctx, `
		INSERT INTO whatsapp_logs (user_id, phone, message_type, message, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		entry.UserID, entry.Phone, entry.MessageType, entry.Message, models.DeliveryStatusPending, createdAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// UpdateDeliveryLogOutcome записывает результат попытки отправки.
func (s *Storage) UpdateDeliveryLogOutcome(ctx context.Context, id int64, outcome models.DeliveryOutcome) error {
	const op = "storage.UpdateDeliveryLogOutcome"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var (
		externalID sql.NullString
		errMessage sql.NullString
		sentAt     sql.NullTime
	)
	switch outcome.Status {
	case models.DeliveryStatusSuccess:
		externalID = sql.NullString{String: outcome.ExternalMessageID, Valid: outcome.ExternalMessageID != ""}
		sentAt = sql.NullTime{Time: outcome.SentAt, Valid: !outcome.SentAt.IsZero()}
	case models.DeliveryStatusFailed:
		errMessage = sql.NullString{String: outcome.ErrorMessage, Valid: true}
	default:
		return fmt.Errorf("%s: unexpected outcome status %q", op, outcome.Status)
	}

	res, err := s.DB.ExecContext(ctx, `
		UPDATE whatsapp_logs
		SET status = $1, external_message_id = $2, error_message = $3, sent_at = $4
		WHERE id = $5`,
		outcome.Status, externalID, errMessage, sentAt, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}

// WasAlreadyNotifiedToday сообщает, есть ли успешная или ожидающая запись
// для пользователя и типа сообщения начиная с startOfDay. Неудачные попытки не учитываются,
// поэтому следующий запуск повторит отправку.
func (s *Storage) WasAlreadyNotifiedToday(ctx context.Context, userID int64, messageType models.MessageType, startOfDay time.Time) (bool, error) {
	const op = "storage.WasAlreadyNotifiedToday"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var exists bool
	err := s.DB.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM whatsapp_logs
			WHERE user_id = $1
			  AND message_type = $2
			  AND created_at >= $3
			  AND status IN ($4, $5)
		)`,
		userID, messageType, startOfDay, models.DeliveryStatusSuccess, models.DeliveryStatusPending,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// ListDeliveryLogs возвращает записи журнала, новые первыми.
func (s *Storage) ListDeliveryLogs(ctx context.Context, filter models.DeliveryLogFilter) ([]*models.DeliveryLog, error) {
	const op = "storage.ListDeliveryLogs"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var (
		conditions []string
		args       []any
	)
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.MessageType != nil {
		args = append(args, *filter.MessageType)
		conditions = append(conditions, fmt.Sprintf("message_type = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultLogsLimit
	}
	offset := max(filter.Offset, 0)

	query := `SELECT id, user_id, phone, message_type, message, status,
			  external_message_id, error_message, created_at, sent_at
			  FROM whatsapp_logs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.DeliveryLog
	for rows.Next() {
		var (
			entry      models.DeliveryLog
			userID     sql.NullInt64
			externalID sql.NullString
			errMessage sql.NullString
			sentAt     sql.NullTime
		)
		if err := rows.Scan(&entry.ID, &userID, &entry.Phone, &entry.MessageType, &entry.Message, &entry.Status,
			&externalID, &errMessage, &entry.CreatedAt, &sentAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if userID.Valid {
			entry.UserID = &userID.Int64
		}
		if externalID.Valid {
			entry.ExternalMessageID = &externalID.String
		}
		if errMessage.Valid {
			entry.ErrorMessage = &errMessage.String
		}
		if sentAt.Valid {
			entry.SentAt = &sentAt.Time
		}
		result = append(result, &entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
