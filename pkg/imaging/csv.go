package imaging

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/annolab/mediasync/pkg/geometry"
)

// AppendCoordsCSV appends one row per coord to a semicolon-delimited
// UTF-8 CSV file, creating it when missing. Columns: index, confidence,
// x, y, w, h, image_name.
func AppendCoordsCSV(path string, coords []geometry.Coord, imageName string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("imaging: open csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = ';'
	for i, c := range coords {
		row := []string{
			strconv.Itoa(i),
			strconv.FormatFloat(c.Score(), 'f', 6, 64),
			strconv.Itoa(c.X()),
			strconv.Itoa(c.Y()),
			strconv.Itoa(c.W()),
			strconv.Itoa(c.H()),
			imageName,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("imaging: write csv row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
