package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/subscription-notifier/internal/migrations"
)

// setupTestStorage поднимает PostgreSQL в контейнере и применяет миграции проекта.
func setupTestStorage(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath))
	require.NoError(t, CheckDatabaseReady(storage))

	return storage
}

// testDataFactory создаёт строки пользователей, планов и подписок напрямую через SQL.
type testDataFactory struct {
	t       *testing.T
	storage *Storage
}

func newTestDataFactory(t *testing.T, storage *Storage) *testDataFactory {
	return &testDataFactory{t: t, storage: storage}
}

type userRow struct {
	Name     string
	Email    string
	Phone    *string
	WhatsApp bool
	Billing  *bool
}

func (f *testDataFactory) createUser(u userRow) int64 {
	f.t.Helper()
	var id int64
	err := f.storage.DB.QueryRow(`INSERT INTO users
		(name, email, phone, enable_whatsapp_notifications, enable_billing_notifications)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		u.Name, u.Email, u.Phone, u.WhatsApp, u.Billing).Scan(&id)
	require.NoError(f.t, err)
	return id
}

func (f *testDataFactory) createPlan(name string) int64 {
	f.t.Helper()
	var id int64
	err := f.storage.DB.QueryRow(`INSERT INTO plans (name, price) VALUES ($1, 49.90) RETURNING id`, name).Scan(&id)
	require.NoError(f.t, err)
	return id
}

type subscriptionRow struct {
	UserID         int64
	PlanID         *int64
	Status         string
	IsActive       bool
	DurationType   string
	EndDate        *time.Time
	HoursStartedAt *time.Time
	IsFreemium     bool
	Amount         float64
}

func (f *testDataFactory) createSubscription(s subscriptionRow) int64 {
	f.t.Helper()
	if s.Status == "" {
		s.Status = "ACTIVE"
	}
	if s.DurationType == "" {
		s.DurationType = "days"
	}
	var id int64
	err := f.storage.DB.QueryRow(`INSERT INTO subscriptions
		(user_id, plan_id, status, is_active, duration_type, end_date, hours_started_at, is_freemium, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		s.UserID, s.PlanID, s.Status, s.IsActive, s.DurationType, s.EndDate, s.HoursStartedAt,
		s.IsFreemium, s.Amount).Scan(&id)
	require.NoError(f.t, err)
	return id
}

func (f *testDataFactory) subscriptionState(id int64) (string, bool) {
	f.t.Helper()
	var (
		status   string
		isActive bool
	)
	err := f.storage.DB.QueryRow(`SELECT status, is_active FROM subscriptions WHERE id = $1`, id).
		Scan(&status, &isActive)
	require.NoError(f.t, err)
	return status, isActive
}

func ptr[T any](v T) *T { return &v }
