package google

import (
	"fmt"
	"strings"

	"claimlens/internal/dataset"
	"claimlens/internal/sources"
)

// parseValues converts a values matrix (as returned by Sheets API) into
// raw rows. The first row is the header; blank rows are skipped.
func parseValues(values [][]interface{}, cols sources.Columns) ([]dataset.Row, error) {
	if len(values) == 0 {
		return nil, nil
	}
	mapping, err := sources.MapHeader(toStrings(values[0]), cols)
	if err != nil {
		return nil, err
	}
	rows := make([]dataset.Row, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		cells := toStrings(values[i])
		if blank(cells) {
			continue
		}
		rows = append(rows, mapping.Row(cells))
	}
	return rows, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func blank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
