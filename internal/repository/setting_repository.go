package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/space-reservation/internal/model"
)

// SettingRepo reads and writes the key/value settings table.
type SettingRepo struct{ DB *sql.DB }

func NewSettingRepo(db *sql.DB) *SettingRepo { return &SettingRepo{DB: db} }

// Value returns the raw value for a key, or model.ErrSettingNotFound.
func (r *SettingRepo) Value(ctx context.Context, key string) (string, error) {
	var v string
	err := r.DB.QueryRowContext(ctx,
		"SELECT value FROM settings WHERE `key` = ? LIMIT 1", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", model.ErrSettingNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// Upsert inserts or replaces a setting.
func (r *SettingRepo) Upsert(ctx context.Context, key, value string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO settings (`key`, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)",
		key, value)
	return err
}
