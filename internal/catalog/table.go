package catalog

import (
	"fmt"
	"math"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/forPelevin/embedscan/internal/types"
)

// RenderTable lists segments as ID, start, end, duration and title.
func RenderTable(c types.Catalog) string {
	if len(c.Segments) == 0 {
		return "No segments meet the minimum duration.\n"
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "ID", "Start", "End", "Length", "Title"})
	for i, e := range c.Segments {
		tw.AppendRow(table.Row{
			i + 1,
			e.ID,
			clock(e.StartSec),
			clock(e.EndSec),
			clock(e.EndSec - e.StartSec),
			e.Title,
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 5, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render() + "\n"
}

// clock formats seconds as m:ss, or h:mm:ss past the hour.
func clock(sec float64) string {
	total := int(math.Round(sec))
	if total < 0 {
		total = 0
	}
	h, m, s := total/3600, (total/60)%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
