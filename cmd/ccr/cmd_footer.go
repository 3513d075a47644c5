package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/report"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/services"
	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/services/footer"
)

var (
	footerDate      string
	footerUnit      string
	footerYear      int
	footerMonth     int
	footerParameter string
	footerFrom      string
	footerTo        string
	footerChart     bool
)

var footerCmd = &cobra.Command{
	Use:   "footer",
	Short: "Generate and show CCR material-usage footers",
}

var footerGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Derive shift counters for a date and store the footer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withManager(cmd.Context(), func(m *services.Manager) error {
			rep, err := m.GenerateFooter(cmd.Context(), footerDate, footerUnit)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), rep, func() string { return renderReport(rep) })
		})
	},
}

var footerMonthCmd = &cobra.Command{
	Use:   "month",
	Short: "Generate the footers of every day of a month",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withManager(cmd.Context(), func(m *services.Manager) error {
			reports, err := m.Footer().GenerateMonth(cmd.Context(), footerYear, footerMonth, footerUnit)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), reports, func() string {
				parts := make([]string, 0, len(reports))
				for _, rep := range reports {
					parts = append(parts, renderReport(rep))
				}
				return strings.Join(parts, "\n\n")
			})
		})
	},
}

var footerShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored footer of a date",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withManager(cmd.Context(), func(m *services.Manager) error {
			records, err := m.Footer().Footer(cmd.Context(), footerDate, footerUnit)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), records, func() string { return report.RenderFooter(records) })
		})
	},
}

var footerSeriesCmd = &cobra.Command{
	Use:   "series",
	Short: "Show the stored footers of one parameter over a date range",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withManager(cmd.Context(), func(m *services.Manager) error {
			records, err := m.Footer().Series(cmd.Context(), footerParameter, footerFrom, footerTo)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), records, func() string {
				out := report.RenderFooter(records)
				if footerChart {
					out += "\n\n" + report.PlotShiftSeries(records, 60, 10)
				}
				return out
			})
		})
	},
}

func renderReport(rep *footer.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", rep.Date, rep.PlantUnit)
	b.WriteString(report.RenderFooter(rep.Records))
	for _, a := range rep.Anomalies {
		fmt.Fprintf(&b, "\ncounter reset: %s %s raw %.2f", a.ParameterID, a.Shift, a.Raw)
	}
	if len(rep.Missing) > 0 {
		fmt.Fprintf(&b, "\nno readings: %s", strings.Join(rep.Missing, ", "))
	}
	return b.String()
}

func init() {
	for _, c := range []*cobra.Command{footerGenerateCmd, footerShowCmd} {
		c.Flags().StringVar(&footerDate, "date", "", "Date (YYYY-MM-DD)")
		c.Flags().StringVar(&footerUnit, "unit", "", "Plant unit")
		_ = c.MarkFlagRequired("date")
		_ = c.MarkFlagRequired("unit")
	}

	footerSeriesCmd.Flags().StringVar(&footerParameter, "parameter", "", "Counter parameter ID")
	footerSeriesCmd.Flags().StringVar(&footerFrom, "from", "", "First date (YYYY-MM-DD)")
	footerSeriesCmd.Flags().StringVar(&footerTo, "to", "", "Last date (YYYY-MM-DD)")
	footerSeriesCmd.Flags().BoolVar(&footerChart, "chart", false, "Plot the shift counters")
	for _, name := range []string{"parameter", "from", "to"} {
		_ = footerSeriesCmd.MarkFlagRequired(name)
	}

	footerMonthCmd.Flags().IntVar(&footerYear, "year", 0, "Year")
	footerMonthCmd.Flags().IntVar(&footerMonth, "month", 0, "Month (1-12)")
	footerMonthCmd.Flags().StringVar(&footerUnit, "unit", "", "Plant unit")
	_ = footerMonthCmd.MarkFlagRequired("year")
	_ = footerMonthCmd.MarkFlagRequired("month")
	_ = footerMonthCmd.MarkFlagRequired("unit")

	footerCmd.AddCommand(footerGenerateCmd)
	footerCmd.AddCommand(footerMonthCmd)
	footerCmd.AddCommand(footerShowCmd)
	footerCmd.AddCommand(footerSeriesCmd)
}
