package export

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/dukerupert/coursecal/internal/model"
)

// EntryRow is one calendar entry as a CSV record.
type EntryRow struct {
	ID       int64  `csv:"id"`
	Title    string `csv:"section"`
	Day      string `csv:"day"`
	Start    string `csv:"start"`
	End      string `csv:"end"`
	Location string `csv:"location"`
	Color    string `csv:"color"`
}

const clockLayout = "3:04pm"

// Rows converts entries to CSV records, keeping their order.
func Rows(entries []model.DisplayEntry) []*EntryRow {
	rows := make([]*EntryRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, &EntryRow{
			ID:       e.ID,
			Title:    e.Title,
			Day:      e.Start.Weekday().String(),
			Start:    e.Start.Format(clockLayout),
			End:      e.End.Format(clockLayout),
			Location: e.Location,
			Color:    e.BgColor,
		})
	}
	return rows
}

// WriteCSV writes a header line followed by one record per entry.
func WriteCSV(w io.Writer, entries []model.DisplayEntry) error {
	if err := gocsv.Marshal(Rows(entries), w); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
