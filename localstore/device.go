package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// EnsureDeviceID returns the persisted device identifier, generating and
// storing one on first call. The id survives restarts and identifies this
// device's writes to the remote server.
func EnsureDeviceID(ctx context.Context, s *Store) (string, error) {
	var deviceID string
	err := s.db.QueryRowContext(ctx, `SELECT deviceId FROM _deviceInfo LIMIT 1`).Scan(&deviceID)
	if errors.Is(err, sql.ErrNoRows) {
		deviceID = uuid.NewString()
		if _, err := s.db.ExecContext(ctx, `INSERT INTO _deviceInfo (deviceId, createdAt) VALUES (?, ?)`,
			deviceID, s.NowString()); err != nil {
			return "", fmt.Errorf("failed to persist device id: %w", err)
		}
		return deviceID, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query device id: %w", err)
	}
	return deviceID, nil
}
