package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/subscription-notifier/internal/models"
)

// ErrSettingsNotFound настройки провайдера ещё не сохранены.
var ErrSettingsNotFound = errors.New("settings not found")

// GetWhatsAppSettings читает актуальные учётные данные провайдера из таблицы settings.
func (s *Storage) GetWhatsAppSettings(ctx context.Context) (*models.WhatsAppSettings, error) {
	const op = "storage.GetWhatsAppSettings"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT key, value FROM settings WHERE key IN ($1, $2, $3, $4)`,
		models.SettingWhatsAppInstanceID, models.SettingWhatsAppToken,
		models.SettingWhatsAppBaseURL, models.SettingWhatsAppClientToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var (
		settings models.WhatsAppSettings
		found    int
	)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		found++
		switch key {
		case models.SettingWhatsAppInstanceID:
			settings.InstanceID = value
		case models.SettingWhatsAppToken:
			settings.Token = value
		case models.SettingWhatsAppBaseURL:
			settings.BaseURL = value
		case models.SettingWhatsAppClientToken:
			settings.ClientToken = value
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if found == 0 || settings.InstanceID == "" || settings.Token == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrSettingsNotFound)
	}
	return &settings, nil
}

// SaveWhatsAppSettings сохраняет учётные данные провайдера одной транзакцией.
func (s *Storage) SaveWhatsAppSettings(ctx context.Context, settings models.WhatsAppSettings) error {
	const op = "storage.SaveWhatsAppSettings"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	values := map[string]string{
		models.SettingWhatsAppInstanceID:  settings.InstanceID,
		models.SettingWhatsAppToken:       settings.Token,
		models.SettingWhatsAppBaseURL:     settings.BaseURL,
		models.SettingWhatsAppClientToken: settings.ClientToken,
	}
	for key, value := range values {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, NOW())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
			key, value)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
