// Package jobs holds background loops started by main.
package jobs

import (
	"context"
	"log"
	"time"

	"messageapp/internal/observability"
)

type TokenSweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// RunTokenSweeper deletes expired tokens once at start and then every interval
// until ctx is done.
func RunTokenSweeper(ctx context.Context, tokens TokenSweeper, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		sweepOnce(ctx, tokens)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func sweepOnce(ctx context.Context, tokens TokenSweeper) {
	removed, err := tokens.SweepExpired(ctx)
	if err != nil {
		log.Printf("token sweep failed: %v", err)
		return
	}
	if removed > 0 {
		observability.AddTokensSwept(removed)
		log.Printf("token sweep removed=%d", removed)
	}
}
