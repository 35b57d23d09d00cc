package probe

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/okian/seisnear/internal/domain/model"
	"github.com/okian/seisnear/internal/domain/types"
	"github.com/okian/seisnear/pkg/logger"
)

// Run executes one probe: health check, search and report.
func Run(ctx context.Context, cfg *Config, out io.Writer) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("probe")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := NewClient(cfg.BaseURL, timeout)

	log.Info(ctx, "starting seisnear probe",
		logger.String("baseURL", cfg.BaseURL),
		logger.Bool("async", cfg.Async),
		logger.Float64("radius", cfg.Request.Radius),
		logger.Duration("timeout", timeout))

	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}
	log.Debug(ctx, "service is healthy")

	var (
		resp *types.SearchResponse
		err  error
	)
	if cfg.Async {
		resp, err = runAsync(ctx, client, cfg, stats, log)
	} else {
		resp, err = client.Search(ctx, cfg.Request)
	}
	if err != nil {
		return stats, err
	}

	stats.ID = resp.ID
	stats.Events = len(resp.Events)
	for _, s := range resp.Stations {
		stats.Stations += len(s)
	}
	stats.Duration = time.Since(stats.StartTime)

	if err := PrintReport(out, resp); err != nil {
		return stats, fmt.Errorf("print report: %w", err)
	}

	log.Info(ctx, "probe completed",
		logger.String("id", stats.ID),
		logger.Int("polls", stats.Polls),
		logger.Int("events", stats.Events),
		logger.Int("stations", stats.Stations),
		logger.Duration("duration", stats.Duration))

	if resp.State == model.StatusFailed {
		return stats, fmt.Errorf("%w: %s", ErrSearchFailed, resp.Message)
	}
	return stats, nil
}

// runAsync submits the search and polls its report until it settles.
func runAsync(ctx context.Context, client *Client, cfg *Config, stats *Stats, log logger.Logger) (*types.SearchResponse, error) {
	ack, err := client.Submit(ctx, cfg.Request)
	if err != nil {
		return nil, fmt.Errorf("submit search: %w", err)
	}
	log.Info(ctx, "search submitted", logger.String("id", ack.ID), logger.String("location", ack.Location))

	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		resp, err := client.Get(ctx, ack.Location)
		stats.Polls++
		if err != nil {
			return nil, fmt.Errorf("poll search %s: %w", ack.ID, err)
		}
		if resp.State == model.StatusDone || resp.State == model.StatusFailed {
			return resp, nil
		}
		log.Debug(ctx, "search not finished", logger.String("id", ack.ID), logger.String("state", string(resp.State)))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
