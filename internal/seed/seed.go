// Package seed loads the demo zones and lockers into an empty store.
package seed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spindit/locker-service/internal/domain"
	"github.com/spindit/locker-service/internal/repository"
)

// DefaultLockerCount is the number of lockers created when none is configured.
const DefaultLockerCount = 1000

var demoZones = []domain.Zone{
	{Name: "Zone A", Description: "Ground floor left wing", ClassTags: []string{"5th", "6th"}},
	{Name: "Zone B", Description: "Ground floor right wing", ClassTags: []string{"7th", "8th"}},
	{Name: "Zone C", Description: "First floor left wing", ClassTags: []string{"9th", "10th"}},
	{Name: "Zone D", Description: "First floor right wing", ClassTags: []string{"11th", "12th"}},
}

// ZonesAndLockers creates four zones and lockerCount free lockers numbered from 1,
// split evenly over the zones with the remainder in the last one. It does nothing
// when any zone already exists. Everything is written in one transaction.
func ZonesAndLockers(ctx context.Context, store *repository.Store, lockerCount int, logger *zap.Logger) (bool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lockerCount <= 0 {
		lockerCount = DefaultLockerCount
	}
	existing, err := store.Zones.List(ctx, repository.ZoneFilter{PageRequest: domain.PageRequest{Page: 1, PerPage: 1}})
	if err != nil {
		return false, fmt.Errorf("count zones: %w", err)
	}
	if existing.TotalItems > 0 {
		logger.Debug("seed skipped, zones already exist", zap.Int("zones", existing.TotalItems))
		return false, nil
	}

	err = store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		zoneIDs := make([]string, len(demoZones))
		for i, z := range demoZones {
			zone := z
			if err := store.Zones.Create(ctx, &zone); err != nil {
				return fmt.Errorf("create %s: %w", zone.Name, err)
			}
			zoneIDs[i] = zone.ID
		}

		perZone := lockerCount / len(zoneIDs)
		if perZone == 0 {
			perZone = 1
		}
		for i := 0; i < lockerCount; i++ {
			idx := i / perZone
			if idx >= len(zoneIDs) {
				idx = len(zoneIDs) - 1
			}
			zoneID := zoneIDs[idx]
			locker := &domain.Locker{Number: i + 1, Status: domain.LockerStatusFree, ZoneID: &zoneID}
			if err := store.Lockers.Create(ctx, locker); err != nil {
				return fmt.Errorf("create locker %d: %w", locker.Number, err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	logger.Info("seeded zones and lockers", zap.Int("zones", len(demoZones)), zap.Int("lockers", lockerCount))
	return true, nil
}
