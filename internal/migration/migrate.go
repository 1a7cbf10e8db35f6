package migration

import (
	"fmt"

	"raffle-escrow/internal/address"
	"raffle-escrow/internal/host"
	"raffle-escrow/internal/logger"
	"raffle-escrow/internal/record"

	"go.uber.org/zap"
)

// Migrate rewrites the raffle record at raffleAddress in the current schema,
// resized to fit exactly. The authority must sign and pays for any growth;
// it is not checked against the raffle's creator.
func Migrate(inv *host.Invocation, authority, raffleAddress address.Address) (*record.Raffle, error) {
	if err := inv.RequireSigner(authority); err != nil {
		return nil, err
	}

	data, err := inv.LoadRecord(raffleAddress)
	if err != nil {
		return nil, err
	}

	migrated, raffle, err := Transform(data)
	if err != nil {
		return nil, fmt.Errorf("migrate raffle %s: %w", raffleAddress, err)
	}

	logger.Warn("migrating raffle record without creator check",
		zap.String("raffle", raffleAddress.String()),
		zap.String("authority", authority.String()),
		zap.Int("old size", len(data)),
		zap.Int("new size", len(migrated)),
	)

	if err := inv.ResizeRecord(raffleAddress, authority, len(migrated)); err != nil {
		return nil, err
	}
	if err := inv.WriteRecord(raffleAddress, migrated); err != nil {
		return nil, err
	}

	logger.Info("raffle migrated", zap.String("raffle", raffleAddress.String()))
	return raffle, nil
}
