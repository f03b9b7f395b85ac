// Package report renders run summaries for the terminal.
package report

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"ssl-backtest/internal/model"
	"ssl-backtest/internal/strategy"
)

// RenderSummary writes a two-column summary table of one run.
func RenderSummary(w io.Writer, symbol string, p strategy.Params, s strategy.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("SSL RUN " + symbol)
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})

	first := "never"
	if s.FirstDefined >= 0 {
		first = fmt.Sprintf("bar %d", s.FirstDefined)
	}

	t.AppendRows([]table.Row{
		{"Length", p.Length},
		{"Capital", fmt.Sprintf("%.2f", p.Capital)},
		{"Risk %", fmt.Sprintf("%.2f", p.RiskPercent)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Bars", s.Bars},
		{"Channel defined from", first},
		{"Buys", s.Buys},
		{"Sells", s.Sells},
		{"Holds", s.Holds},
		{"Traded", fmt.Sprintf("%.2f", s.Traded)},
		{"Final side", s.FinalSide.String()},
	})
	t.Render()
}

// RenderSignals writes one line per buy/sell row, up to limit rows (0 = all).
func RenderSignals(w io.Writer, rows []model.Row, limit int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "TS", "Close", "Dir", "SSL High", "SSL Low", "Signal", "Size"})

	n := 0
	for i := range rows {
		r := &rows[i]
		if r.Signal == model.Hold {
			continue
		}
		if limit > 0 && n == limit {
			break
		}
		ts := ""
		if !r.TS.IsZero() {
			ts = r.TS.UTC().Format("2006-01-02 15:04")
		}
		t.AppendRow(table.Row{i, ts, num(r.Close), r.Dir.String(), num(r.SSLHigh), num(r.SSLLow), r.Signal.String(), num(r.PositionSize)})
		n++
	}
	t.Render()
}

func num(v float64) string {
	if !model.IsDefined(v) {
		return "-"
	}
	return fmt.Sprintf("%.4f", v)
}
