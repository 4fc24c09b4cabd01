package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/LISSConsulting/LISSTech.Spellbook/internal/config"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/spellbook"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/store"
	"github.com/LISSConsulting/LISSTech.Spellbook/internal/tui"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// showStatus prints the persisted aggregate state as tables.
func showStatus(ctx context.Context, cfg *config.Config, out io.Writer) error {
	blob, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer blob.Close()

	state, found, err := store.NewPersister(blob, cfg.Storage.Key).Load(ctx)
	if err != nil {
		return err
	}
	if !found {
		fmt.Fprintln(out, "No persisted state found. Run 'spellbook run' first.")
		return nil
	}

	fmt.Fprintln(out, renderSummary(state))
	fmt.Fprintln(out, renderParty(state.Spellbook.Party))
	fmt.Fprintln(out, renderResting(state.Spellbook.Resting, time.Now()))
	return nil
}

func renderSummary(s store.State) string {
	rows := [][]string{
		{"version", s.Version},
		{"you", tui.OrPlaceholder(s.Spellbook.You)},
		{"zone", tui.OrPlaceholder(s.Dynamis.ZoneName)},
		{"party", strconv.Itoa(len(s.Spellbook.Party))},
		{"resting", strconv.Itoa(len(s.Spellbook.Resting))},
		{"tome", strconv.Itoa(len(s.Tome))},
		{"bestiary", strconv.Itoa(len(s.Bestiary))},
	}
	return renderTable([]string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
}

func renderParty(party spellbook.Roster) string {
	names := make([]string, 0, len(party))
	for name := range party {
		names = append(names, name)
	}
	slices.Sort(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		m := party[name]
		rows = append(rows, []string{name, m.ID, strconv.Itoa(m.Job)})
	}
	return renderTable([]string{"Member", "ID", "Job"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight})
}

// renderResting lists every resting entry, hidden ones included, with the
// recast left at now.
func renderResting(entries []spellbook.TrackedAbility, now time.Time) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name
		if !e.Resolved {
			name = "#" + e.ID + " (pending)"
		}
		rows = append(rows, []string{
			e.ID,
			name,
			formatSeconds(e.Remaining(now)),
			formatSeconds(e.Duration),
		})
	}
	return renderTable(
		[]string{"ID", "Ability", "Remaining", "Recast"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
	)
}

// formatSeconds renders d as whole seconds, rounded up.
func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%ds", int(math.Ceil(d.Seconds())))
}

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}
