package service

import (
	"context"
	"log/slog"

	"github.com/climbing-tracker/internal/domain"
	"github.com/climbing-tracker/internal/ranking"
)

// EventPublisher delivers climb events to whatever keeps the leaderboards current
type EventPublisher interface {
	PublishClimbEvent(ctx context.Context, event domain.ClimbEvent) error
}

// ClimbEventHandler consumes batches of climb events
type ClimbEventHandler interface {
	HandleClimbEvents(ctx context.Context, events []domain.ClimbEvent) error
}

// LeaderboardCache stores materialised leaderboard windows
type LeaderboardCache interface {
	StoreWindow(ctx context.Context, w ranking.Window, entries []ranking.Entry) error
	GetRange(ctx context.Context, w ranking.Window, offset, limit int) ([]ranking.Entry, int, bool, error)
	GetUserRank(ctx context.Context, w ranking.Window, userID string) (int, bool, error)
	Invalidate(ctx context.Context) error
}

// Broadcaster pushes leaderboard snapshots to live subscribers
type Broadcaster interface {
	BroadcastLeaderboard(w ranking.Window, entries []ranking.Entry)
}

// LocalPublisher hands events straight to an in-process handler. It is used when Kafka is disabled.
type LocalPublisher struct {
	handler ClimbEventHandler
	logger  *slog.Logger
}

// NewLocalPublisher creates a publisher that calls handler synchronously
func NewLocalPublisher(handler ClimbEventHandler, logger *slog.Logger) *LocalPublisher {
	return &LocalPublisher{handler: handler, logger: logger}
}

// PublishClimbEvent forwards a single event
func (p *LocalPublisher) PublishClimbEvent(ctx context.Context, event domain.ClimbEvent) error {
	return p.handler.HandleClimbEvents(ctx, []domain.ClimbEvent{event})
}

// publish logs instead of failing the write that produced the event
func publish(ctx context.Context, p EventPublisher, logger *slog.Logger, event domain.ClimbEvent) {
	if p == nil {
		return
	}
	if err := p.PublishClimbEvent(ctx, event); err != nil {
		logger.Warn("failed to publish climb event",
			"type", event.Type,
			"climb_id", event.ClimbID,
			"error", err,
		)
	}
}
