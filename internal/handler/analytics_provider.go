package handler

import (
	"context"
	"time"

	"github.com/liblogin/internal/db"
	"github.com/liblogin/internal/service"
)

type impressionProvider interface {
	Record(ctx context.Context, input service.ImpressionInput, now time.Time) (service.RecordResult, error)
	Summary(ctx context.Context, w service.Window, hotspot string) (service.ImpressionSummary, error)
}

type reachProvider interface {
	Report(ctx context.Context, query service.ReportQuery) (service.ReachReport, error)
}

type rollupProvider interface {
	Rollup(ctx context.Context, day service.Window) ([]db.DailyReachStats, error)
	ListDaily(ctx context.Context, hotspot, from, to string) ([]db.DailyReachStats, error)
}
