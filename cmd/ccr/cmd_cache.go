package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/models"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/report"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/services"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/services/analysiscache"
)

var invalidateDims models.CacheDimensions

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the analysis cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withManager(cmd.Context(), func(m *services.Manager) error {
			stats := m.Cache().Stats(cmd.Context())
			return printResult(cmd.OutOrStdout(), stats, func() string { return report.RenderStats(stats) })
		})
	},
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired cache entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withManager(cmd.Context(), func(m *services.Manager) error {
			n := m.Cache().SweepExpired(cmd.Context())
			return printResult(cmd.OutOrStdout(), map[string]int{"deleted": n}, func() string {
				return fmt.Sprintf("deleted %d expired entries", n)
			})
		})
	},
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Delete the cached analysis of one set of dimensions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withManager(cmd.Context(), func(m *services.Manager) error {
			n := m.Cache().Invalidate(cmd.Context(), invalidateDims)
			key := analysiscache.Key(invalidateDims)
			return printResult(cmd.OutOrStdout(), map[string]any{"key": key, "deleted": n}, func() string {
				return fmt.Sprintf("deleted %d entries for %s", n, key)
			})
		})
	},
}

func init() {
	f := cacheInvalidateCmd.Flags()
	f.StringVar(&invalidateDims.Category, "category", "", "Parameter category")
	f.StringVar(&invalidateDims.Unit, "unit", "", "Plant unit")
	f.StringVar(&invalidateDims.CementType, "cement-type", models.CementOPC, "Cement type (OPC or PCC)")
	f.IntVar(&invalidateDims.Year, "year", 0, "Year")
	f.IntVar(&invalidateDims.Month, "month", 0, "Month (1-12)")
	for _, name := range []string{"category", "unit", "year", "month"} {
		_ = cacheInvalidateCmd.MarkFlagRequired(name)
	}

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheSweepCmd)
	cacheCmd.AddCommand(cacheInvalidateCmd)
}
