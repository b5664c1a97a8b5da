// Package analytics computes whole-dataset metrics and cross-column
// statistics on top of column profiles.
package analytics

import (
	"github.com/KaramelBytes/edalens/internal/profiling"
	"github.com/KaramelBytes/edalens/internal/table"
)

// DatasetProfile holds whole-table summary metrics.
type DatasetProfile struct {
	Rows             int
	Columns          int
	DuplicateRowsPct float64
	TotalMissingPct  float64
	MemoryUsageMB    float64
}

// Per-cell byte costs of the in-memory estimate.
const (
	fixedCellBytes   = 8
	boolCellBytes    = 1
	stringHeaderSize = 16
	validityBytes    = 1
)

// ProfileDataset computes duplicate, missing and memory metrics for t.
func ProfileDataset(t *table.Table) DatasetProfile {
	rows := t.Rows()
	dp := DatasetProfile{Rows: rows, Columns: t.Width()}
	if rows > 0 {
		seen := make(map[string]struct{}, rows)
		dups := 0
		for r := 0; r < rows; r++ {
			k := t.RowKey(r)
			if _, ok := seen[k]; ok {
				dups++
				continue
			}
			seen[k] = struct{}{}
		}
		dp.DuplicateRowsPct = profiling.Round(float64(dups)/float64(rows)*100, 2)
	}
	if t.Width() > 0 {
		var sum float64
		for i := range t.Columns {
			c := &t.Columns[i]
			if c.Len() > 0 {
				sum += float64(c.Len()-c.NonNull()) / float64(c.Len())
			}
		}
		dp.TotalMissingPct = profiling.Round(sum/float64(t.Width())*100, 2)
	}
	dp.MemoryUsageMB = profiling.Round(float64(memoryBytes(t))/(1024*1024), 2)
	return dp
}

func memoryBytes(t *table.Table) int64 {
	var n int64
	for i := range t.Columns {
		c := &t.Columns[i]
		n += int64(len(c.Name))
		for _, cell := range c.Cells {
			n += validityBytes
			switch c.Storage {
			case table.Integer, table.Float, table.Timestamp:
				n += fixedCellBytes
			case table.Boolean:
				n += boolCellBytes
			case table.String:
				n += stringHeaderSize + int64(len(cell.Str))
			}
		}
	}
	return n
}
