package agent

import (
	"context"

	"github.com/cuemby/tether/pkg/log"
	"github.com/cuemby/tether/pkg/observable"
	"github.com/cuemby/tether/pkg/observer"
	"github.com/rs/zerolog"
)

// Report watches the observables behind h and calls fn with every published
// value until ctx is done. When a run crashes it waits for the restarted
// generation and keeps watching.
func Report[T any](ctx context.Context, h *Handle[T], fn func(logger zerolog.Logger, v T)) error {
	logger := log.WithComponent("reporter").With().Str("subject", h.Name()).Logger()

	o := observer.New[T]("reporter/" + h.Name())
	defer o.Close()

	var obs *observable.Observable[T]
	for {
		next, err := h.Next(ctx, obs)
		if err != nil {
			return nil
		}
		obs = next

		err = o.Watch(ctx, obs, func(v T) error {
			fn(logger, v)
			return nil
		})
		if ctx.Err() != nil {
			return nil
		}
		logger.Warn().Err(err).Msg("observable crashed, waiting for restart")
	}
}
