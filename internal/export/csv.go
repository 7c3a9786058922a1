package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/sadopc/worklog/internal/record"
)

// ToCSV writes one row per record followed by a totals row.
func ToCSV(r Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	if err := w.Write(header); err != nil {
		return err
	}
	for _, rec := range r.Records {
		row := []string{
			strconv.Itoa(rec.Index),
			rec.DateLabel(),
			rec.DayOfWeek,
			strconv.FormatInt(rec.Duration, 10),
			record.Clock(rec.Duration),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	total := []string{
		"Total",
		fmt.Sprintf("%d days", r.Totals.Days),
		"",
		strconv.FormatInt(r.Totals.Seconds, 10),
		record.Clock(r.Totals.Seconds),
	}
	if err := w.Write(total); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}
