package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/subscription-notifier/internal/models"
)

const subscriptionColumns = `
	s.id, s.user_id, COALESCE(p.name, ''), s.status, s.is_active, s.duration_type,
	s.end_date, s.hours_started_at, s.hours_available, s.hours_used, s.is_freemium, s.amount::float8,
	u.id, u.name, u.email, u.phone, u.enable_whatsapp_notifications, u.enable_billing_notifications
	FROM subscriptions s
	JOIN users u ON u.id = s.user_id
	LEFT JOIN plans p ON p.id = s.plan_id`

// FindExpiringSubscriptions находит активные подписки по дням, у которых end_date попадает в [from, to].
func (s *Storage) FindExpiringSubscriptions(ctx context.Context, from, to time.Time) ([]*models.Subscription, error) {
	const op = "storage.FindExpiringSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT` + subscriptionColumns + `
			  WHERE s.end_date BETWEEN $1 AND $2
			    AND s.status = $3
			    AND s.is_active = TRUE
			    AND s.duration_type = $4
			  ORDER BY s.id`
	res, err := s.querySubscriptions(ctx, query, from, to, models.SubscriptionStatusActive, models.DurationDays)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// FindExpiredSubscriptions находит активные подписки с end_date раньше now.
func (s *Storage) FindExpiredSubscriptions(ctx context.Context, now time.Time) ([]*models.Subscription, error) {
	const op = "storage.FindExpiredSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT` + subscriptionColumns + `
			  WHERE s.end_date < $1
			    AND s.status = $2
			    AND s.is_active = TRUE
			  ORDER BY s.id`
	res, err := s.querySubscriptions(ctx, query, now, models.SubscriptionStatusActive)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// FindExpiredTesterSubscriptions находит активные тестовые почасовые подписки,
// начатые раньше cutoff.
func (s *Storage) FindExpiredTesterSubscriptions(ctx context.Context, cutoff time.Time) ([]*models.Subscription, error) {
	const op = "storage.FindExpiredTesterSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT` + subscriptionColumns + `
			  WHERE s.duration_type = $1
			    AND s.is_freemium = TRUE
			    AND s.is_active = TRUE
			    AND s.status = $3
			    AND s.hours_started_at < $2
			  ORDER BY s.id`
	res, err := s.querySubscriptions(ctx, query, models.DurationHours, cutoff, models.SubscriptionStatusActive)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// ExpireSubscription переводит подписку в EXPIRED одним условным UPDATE.
// Возвращает false, если подписку уже продлили или перевели конкурентно.
func (s *Storage) ExpireSubscription(ctx context.Context, id int64, guard models.ExpireGuard) (bool, error) {
	const op = "storage.ExpireSubscription"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var (
		query string
		bound time.Time
	)
	switch {
	case guard.EndDateBefore != nil:
		query = `UPDATE subscriptions
			     SET status = $1, is_active = FALSE, updated_at = NOW()
			     WHERE id = $2 AND status = $3 AND is_active = TRUE AND end_date < $4`
		bound = *guard.EndDateBefore
	case guard.HoursStartedAtBefore != nil:
		query = `UPDATE subscriptions
			     SET status = $1, is_active = FALSE, updated_at = NOW()
			     WHERE id = $2 AND is_active = TRUE AND status = $3 AND hours_started_at < $4`
		bound = *guard.HoursStartedAtBefore
	default:
		return false, fmt.Errorf("%s: empty expire guard", op)
	}

	res, err := s.DB.ExecContext(ctx, query, models.SubscriptionStatusExpired, id, models.SubscriptionStatusActive, bound)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected == 1, nil
}

// GetSubscription возвращает подписку вместе с владельцем.
func (s *Storage) GetSubscription(ctx context.Context, id int64) (*models.Subscription, error) {
	const op = "storage.GetSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.querySubscriptions(ctx, `SELECT`+subscriptionColumns+` WHERE s.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return res[0], nil
}

func (s *Storage) querySubscriptions(ctx context.Context, query string, args ...any) ([]*models.Subscription, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sub)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row scanner) (*models.Subscription, error) {
	var (
		sub            models.Subscription
		endDate        sql.NullTime
		hoursStartedAt sql.NullTime
		phone          sql.NullString
		billing        sql.NullBool
	)
	err := row.Scan(&sub.ID, &sub.UserID, &sub.PlanName, &sub.Status, &sub.IsActive, &sub.DurationType,
		&endDate, &hoursStartedAt, &sub.HoursAvailable, &sub.HoursUsed, &sub.IsFreemium, &sub.Amount,
		&sub.User.ID, &sub.User.Name, &sub.User.Email, &phone,
		&sub.User.EnableWhatsAppNotifications, &billing)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if endDate.Valid {
		sub.EndDate = &endDate.Time
	}
	if hoursStartedAt.Valid {
		sub.HoursStartedAt = &hoursStartedAt.Time
	}
	if phone.Valid {
		sub.User.Phone = &phone.String
	}
	if billing.Valid {
		sub.User.EnableBillingNotifications = &billing.Bool
	}
	return &sub, nil
}
