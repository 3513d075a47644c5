package main

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/httpapi"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/logger"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/services"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sweeper, the readings watcher and the HTTP API",
	Long: `Runs until interrupted:
  - expired analysis cache entries are swept every CACHE_SWEEP_INTERVAL
  - reading documents dropped in CCR_READINGS_DIR are imported and their
    footers regenerated
  - the HTTP API and /metrics are served on CCR_HTTP_ADDR when set`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withManager(cmd.Context(), func(m *services.Manager) error {
			return runServices(cmd.Context(), m)
		})
	},
}

func runServices(ctx context.Context, m *services.Manager) error {
	g, ctx := errgroup.WithContext(ctx)

	events := m.Subscribe()
	defer m.Unsubscribe(events)

	g.Go(func() error { return m.Run(ctx) })
	g.Go(func() error {
		logEvents(ctx, events)
		return nil
	})

	if cfg.HTTPAddr != "" {
		h := httpapi.NewHandler(httpapi.Backends{
			Cache:     m.Cache(),
			Footers:   m.Footer(),
			Generator: m,
			Analyses:  m.Analysis(),
			Gatherer:  m.Registry(),
		})
		g.Go(func() error { return httpapi.Serve(ctx, cfg.HTTPAddr, h.Router()) })
	}

	return g.Wait()
}

func logEvents(ctx context.Context, events <-chan services.ServiceEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			logEvent(event)
		}
	}
}

func logEvent(event services.ServiceEvent) {
	switch e := event.(type) {
	case services.ReadingsImportedEvent:
		logger.Info("readings imported", "path", e.Imported.Path, "date", e.Imported.Date,
			"plant_unit", e.Imported.PlantUnit, "count", e.Imported.Count)
	case services.FooterGeneratedEvent:
		logger.Info("footer generated", "date", e.Report.Date, "plant_unit", e.Report.PlantUnit,
			"records", len(e.Report.Records), "missing", len(e.Report.Missing))
	case services.CounterResetEvent:
		logger.Warn("counter reset", "parameter_id", e.Anomaly.ParameterID, "date", e.Anomaly.Date,
			"shift", e.Anomaly.Shift, "raw", e.Anomaly.Raw)
	case services.CacheSweptEvent:
		logger.Debug("cache swept", "deleted", e.Deleted)
	case services.ErrorEvent:
		logger.Error("service error", "service", e.Service, "error", e.Error)
	}
}
