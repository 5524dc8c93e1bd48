package market

import (
	"context"
	"fmt"
	"time"

	"github.com/rickgao/predict-core/internal/api"
	"github.com/rickgao/predict-core/internal/model"
)

// Sync fetches every event page and applies the markets they contain.
// Nothing is applied when any page fails.
func (r *Registry) Sync(ctx context.Context) error {
	start := time.Now()

	markets, err := r.fetchAll(ctx)
	if err != nil {
		return err
	}

	var pending []Change

	r.mu.Lock()
	for _, m := range markets {
		if c, ok := r.upsertLocked(m); ok {
			pending = append(pending, c)
		}
	}
	r.lastSyncAt = time.Now()
	active := len(r.activeSet)
	r.mu.Unlock()

	for _, c := range pending {
		r.notify(c)
	}

	if len(pending) > 0 {
		r.logger.Info("market sync found changes",
			"changes", len(pending),
			"active_markets", active,
			"duration", time.Since(start),
		)
	} else {
		r.logger.Debug("market sync complete",
			"total_markets", len(markets),
			"duration", time.Since(start),
		)
	}

	return nil
}

// fetchAll pages through events until a short page.
func (r *Registry) fetchAll(ctx context.Context) ([]model.Market, error) {
	var out []model.Market

	for offset := 0; ; offset += r.cfg.PageSize {
		page, err := r.lister.GetEvents(ctx, api.GetEventsOptions{
			Limit:  r.cfg.PageSize,
			Offset: offset,
			Status: r.cfg.EventStatus,
		})
		if err != nil {
			return nil, fmt.Errorf("sync markets at offset %d: %w", offset, err)
		}

		for i := range page {
			e := page[i].ToModel()
			for _, m := range e.Markets {
				if m.EventID == 0 {
					m.EventID = e.ID
				}
				out = append(out, m)
			}
		}

		if len(page) < r.cfg.PageSize {
			return out, nil
		}
	}
}

// reconciliationLoop periodically re-syncs with the backend.
func (r *Registry) reconciliationLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Sync(ctx); err != nil {
				r.logger.Error("market reconciliation failed", "err", err)
			}
		}
	}
}
