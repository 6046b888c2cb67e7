package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/m-2-h/TextSecure-Server/pkg/entities"
)

// ErrDeviceNotFound is returned when no device matches a lookup.
var ErrDeviceNotFound = errors.New("device not found")

// DeviceStore resolves read-only device snapshots for dispatch. Registration
// flows own the write side of these rows.
type DeviceStore interface {
	GetDevice(ctx context.Context, number string, deviceID uint64) (entities.Device, error)
}

// Accounts is the Postgres-backed device store.
type Accounts struct {
	pool *pgxpool.Pool
}

var _ DeviceStore = (*Accounts)(nil)

func NewAccounts(pool *pgxpool.Pool) *Accounts {
	return &Accounts{pool: pool}
}

func (s *Accounts) GetDevice(ctx context.Context, number string, deviceID uint64) (entities.Device, error) {
	const query = `SELECT gcm_id, apn_id, voip_apn_id, fetches_messages FROM devices
	               WHERE number = $1 AND device_id = $2`

	var (
		gcmID, apnID, voipApnID *string
		fetchesMessages         bool
	)
	err := s.pool.QueryRow(ctx, query, number, deviceID).Scan(&gcmID, &apnID, &voipApnID, &fetchesMessages)
	if errors.Is(err, pgx.ErrNoRows) {
		return entities.Device{}, ErrDeviceNotFound
	}
	if err != nil {
		return entities.Device{}, fmt.Errorf("device lookup failed: %w", err)
	}

	device := entities.Device{ID: deviceID, FetchesMessages: fetchesMessages}
	if gcmID != nil {
		device.MobilePushID = *gcmID
	}
	if apnID != nil {
		device.ApplePushID = *apnID
	}
	if voipApnID != nil {
		device.VoipApplePushID = *voipApnID
	}
	return device, nil
}
