package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/models"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/report"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/services"
)

var (
	analysisDims  models.CacheDimensions
	analysisChart string
)

var analysisCmd = &cobra.Command{
	Use:   "analysis",
	Short: "Show the monthly COP analysis, served from the cache when fresh",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withManager(cmd.Context(), func(m *services.Manager) error {
			a, cached, err := m.Analysis().Monthly(cmd.Context(), analysisDims)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), a, func() string {
				var b strings.Builder
				b.WriteString(report.RenderAnalysis(a))
				if cached {
					b.WriteString("\n(cached)")
				}
				if analysisChart != "" {
					b.WriteString("\n\n")
					b.WriteString(plotParameter(a, analysisChart))
				}
				return b.String()
			})
		})
	},
}

func plotParameter(a *models.CopAnalysis, name string) string {
	for _, p := range a.Parameters {
		if strings.EqualFold(p.Parameter, name) || p.ParameterID == name {
			return report.PlotDailyAverages(p, 60, 10)
		}
	}
	return fmt.Sprintf("parameter %q not in analysis", name)
}

func init() {
	f := analysisCmd.Flags()
	f.StringVar(&analysisDims.Category, "category", "", "Parameter category")
	f.StringVar(&analysisDims.Unit, "unit", "", "Plant unit")
	f.StringVar(&analysisDims.CementType, "cement-type", models.CementOPC, "Cement type (OPC or PCC)")
	f.IntVar(&analysisDims.Year, "year", 0, "Year")
	f.IntVar(&analysisDims.Month, "month", 0, "Month (1-12)")
	f.StringVar(&analysisChart, "chart", "", "Plot the daily averages of a parameter")
	for _, name := range []string{"category", "unit", "year", "month"} {
		_ = analysisCmd.MarkFlagRequired(name)
	}
}
