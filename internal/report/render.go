// Package report renders cache statistics, CCR footers and monthly analyses
// for the terminal.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"

	"github.com/ardilabayufirdaus/SIPOMA-PocketBase-sub005/internal/models"
)

const noData = "No data available"

// RenderStats renders cache statistics as a bordered card.
func RenderStats(stats models.CacheStats) string {
	rows := []struct {
		label string
		value string
	}{
		{"Total entries", humanize.Comma(int64(stats.TotalEntries))},
		{"Active", humanize.Comma(int64(stats.ActiveEntries))},
		{"Expired", humanize.Comma(int64(stats.ExpiredEntries))},
		{"Approx. size", humanize.IBytes(uint64(max(stats.TotalApproxBytes, 0)))},
	}

	lines := []string{titleStyle.Render("Analysis cache")}
	for _, r := range rows {
		lines = append(lines, labelStyle.Render(r.label)+r.value)
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}

// RenderFooter renders footer records as a table with a totals row. Rows are
// labeled by date when every record belongs to the same parameter.
func RenderFooter(records []models.FooterRecord) string {
	if len(records) == 0 {
		return helpStyle.Render(noData)
	}

	byDate := len(records) > 1
	for _, rec := range records[1:] {
		if rec.ParameterID != records[0].ParameterID {
			byDate = false
			break
		}
	}
	firstHeader := "Parameter"
	if byDate {
		firstHeader = records[0].ParameterID
	}

	var sum models.ShiftCounters
	rows := make([][]string, 0, len(records)+1)
	for _, rec := range records {
		c := rec.Counters
		sum.Shift3Cont += c.Shift3Cont
		sum.Shift1 += c.Shift1
		sum.Shift2 += c.Shift2
		sum.Shift3 += c.Shift3
		label := rec.ParameterID
		if byDate {
			label = rec.Date
		}
		rows = append(rows, []string{
			label,
			formatNumber(c.Shift3Cont),
			formatNumber(c.Shift1),
			formatNumber(c.Shift2),
			formatNumber(c.Shift3),
			formatNumber(rec.Total),
		})
	}
	rows = append(rows, []string{
		"TOTAL",
		formatNumber(sum.Shift3Cont),
		formatNumber(sum.Shift1),
		formatNumber(sum.Shift2),
		formatNumber(sum.Shift3),
		formatNumber(sum.Total()),
	})
	last := len(rows) - 1

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(subtle)).
		Headers(firstHeader, "Shift 3 (cont)", "Shift 1", "Shift 2", "Shift 3", "Total").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0 && row == last:
				return cellStyle.Bold(true)
			case col == 0:
				return cellStyle
			case row == last:
				return numberStyle.Bold(true)
			default:
				return numberStyle
			}
		})

	return t.Render()
}

// RenderAnalysis renders a monthly analysis: one row per parameter with its
// bounds and compliance, followed by the overall COP.
func RenderAnalysis(a *models.CopAnalysis) string {
	if a == nil || len(a.Parameters) == 0 {
		return helpStyle.Render(noData)
	}

	rows := make([][]string, 0, len(a.Parameters))
	for _, p := range a.Parameters {
		rows = append(rows, []string{
			p.Parameter,
			p.Unit,
			formatBound(p.Min),
			formatBound(p.Max),
			fmt.Sprintf("%d/%d", p.DaysInRange, p.DaysWithData),
			fmt.Sprintf("%.2f%%", p.PercentInRange),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(subtle)).
		Headers("Parameter", "Unit", "Min", "Max", "Days", "In range").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 5 && row < len(a.Parameters):
				return numberStyle.Inherit(complianceStyle(a.Parameters[row].PercentInRange))
			case col >= 2:
				return numberStyle
			default:
				return cellStyle
			}
		})

	d := a.Dimensions
	title := titleStyle.Render(fmt.Sprintf("%s / %s  %04d-%02d  %s", d.Category, d.Unit, d.Year, d.Month, d.CementType))
	overall := labelStyle.Render("Overall COP") +
		complianceStyle(a.OverallCOP).Render(fmt.Sprintf("%.2f%%", a.OverallCOP))

	return lipgloss.JoinVertical(lipgloss.Left, title, t.Render(), overall)
}

// PlotDailyAverages charts the daily averages of one parameter. Days without
// data are left as gaps.
func PlotDailyAverages(p models.ParameterAnalysis, width, height int) string {
	data := make([]float64, len(p.DailyAverages))
	points := 0
	for i, v := range p.DailyAverages {
		if v == nil {
			data[i] = math.NaN()
			continue
		}
		data[i] = *v
		points++
	}
	if points == 0 {
		return helpStyle.Render(noData)
	}

	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}

	opts := []asciigraph.Option{
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(fmt.Sprintf("%s daily average (%s)", p.Parameter, p.Unit)),
	}
	if p.Min != nil {
		opts = append(opts, asciigraph.LowerBound(*p.Min))
	}
	if p.Max != nil {
		opts = append(opts, asciigraph.UpperBound(*p.Max))
	}

	return asciigraph.Plot(data, opts...)
}

// PlotShiftSeries charts per-shift consumption across footer records, one
// series per shift, in record order.
func PlotShiftSeries(records []models.FooterRecord, width, height int) string {
	if len(records) == 0 {
		return helpStyle.Render(noData)
	}
	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}

	series := make([][]float64, 3)
	for i := range series {
		series[i] = make([]float64, len(records))
	}
	for i, rec := range records {
		series[0][i] = rec.Counters.Shift1
		series[1][i] = rec.Counters.Shift2
		series[2][i] = rec.Counters.Shift3 + rec.Counters.Shift3Cont
	}

	return asciigraph.PlotMany(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption("shift 1 / shift 2 / shift 3"),
		asciigraph.SeriesColors(asciigraph.Green, asciigraph.Blue, asciigraph.Red),
	)
}

func formatNumber(v float64) string {
	return humanize.CommafWithDigits(v, 2)
}

func formatBound(v *float64) string {
	if v == nil {
		return "-"
	}
	return formatNumber(*v)
}
