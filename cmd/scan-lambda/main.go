package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/ganot/forge-registry/internal/app"
	"github.com/ganot/forge-registry/internal/config"
	"github.com/ganot/forge-registry/internal/observability"
	"github.com/ganot/forge-registry/internal/scan"
)

var version = "dev"

// safetyMargin is left unused at the end of an invocation so the final
// save and the response finish before the runtime kills the process.
const safetyMargin = 5 * time.Second

// handler runs one scan per scheduled event.
type handler struct {
	scanner *scan.Orchestrator
	logger  *slog.Logger
	budget  time.Duration
	now     func() time.Time
}

// Response is returned to the scheduler for visibility in invocation logs.
type Response struct {
	Tasks  map[string]scan.Outcome `json:"tasks"`
	Failed bool                    `json:"failed"`
}

func (h *handler) handle(ctx context.Context, event events.CloudWatchEvent) (Response, error) {
	budget := h.budget
	if dl, ok := ctx.Deadline(); ok {
		if left := dl.Sub(h.now()) - safetyMargin; left < budget || budget <= 0 {
			budget = left
		}
	}
	if budget <= 0 {
		h.logger.Warn("invocation deadline too close, skipping scan", "event_id", event.ID)
		return Response{Tasks: map[string]scan.Outcome{}}, nil
	}

	h.logger.Info("scheduled scan", "event_id", event.ID, "source", event.Source, "budget", budget)
	report := h.scanner.Run(ctx, scan.RunOptions{Budget: budget})

	resp := Response{Tasks: make(map[string]scan.Outcome, len(report.Tasks)), Failed: report.Failed()}
	for _, t := range report.Tasks {
		resp.Tasks[t.Task] = t.Outcome
	}
	// Failed tasks are retried on the next schedule, not by the runtime.
	return resp, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := app.NewLogger(os.Stdout, cfg.Log.Level)

	ctx := context.Background()
	shutdown, err := observability.SetupOTel(ctx, cfg.OTel, version)
	if err != nil {
		logger.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}
	defer shutdown(ctx)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	h := &handler{scanner: a.Scanner, logger: logger, budget: cfg.Scan.Budget, now: time.Now}
	lambda.Start(h.handle)
}
