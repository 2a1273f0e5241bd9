package channelcfg

import (
	"context"
	"fmt"

	"github.com/edirooss/headend-server/internal/unit"
	"go.uber.org/zap"
)

// Store persists channel configurations; backed by the external config store.
type Store interface {
	Save(ctx context.Context, channelID int64, cfg *ChannelConfig) error
}

// Restarter restarts one (channel, kind) managed process.
type Restarter interface {
	Restart(ctx context.Context, channelID int64, kind unit.Kind) error
}

// Applier validates a channel configuration and, on success, persists it and
// restarts the affected services in sequence.
type Applier struct {
	log       *zap.Logger
	store     Store
	restarter Restarter
}

func NewApplier(log *zap.Logger, store Store, restarter Restarter) *Applier {
	return &Applier{
		log:       log.Named("config_applier"),
		store:     store,
		restarter: restarter,
	}
}

// Apply runs validate, persist, restart, in that order.
//
// Restarts are sequential and fail-fast: the first failure aborts the
// remaining kinds and is returned naming the kind it stopped at, so the
// caller knows exactly which service is in an inconsistent state.
func (a *Applier) Apply(ctx context.Context, channelID int64, cfg *ChannelConfig, restart []unit.Kind) error {
	for _, kind := range restart {
		if _, err := unit.ParseKind(kind.String()); err != nil {
			return err
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := a.store.Save(ctx, channelID, cfg); err != nil {
		return fmt.Errorf("persist config: %w", err)
	}

	for _, kind := range restart {
		if err := a.restarter.Restart(ctx, channelID, kind); err != nil {
			return fmt.Errorf("restart %s: %w", kind, err)
		}
		a.log.Info("service restarted after config change",
			zap.Int64("channel_id", channelID),
			zap.String("kind", kind.String()))
	}
	return nil
}
