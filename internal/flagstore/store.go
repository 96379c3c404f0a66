package flagstore

import (
	"math"

	"statlab/domain/dataset"
	"statlab/domain/stats"
	"statlab/internal/config"
	"statlab/internal/errors"

	mstats "github.com/montanaflynn/stats"
)

// Store maintains the per-cell flag grid for the active dataset. The grid is a
// dense row-major byte matrix whose lifetime is tied to the dataset: fully
// reinitialized on load, column-sliced on deletion.
//
// Marking operations overwrite rather than accumulate: re-running the same
// operation twice yields an identical grid. ApplyRange is the one additive
// operation and is rejected atomically when its floor would be violated.
//
// MISSING cells are never reclassified by any operation.
type Store struct {
	rows, cols int
	flags      []dataset.Flag
	cfg        config.FlaggingConfig
}

// FlagStats reports the outcome of a mutating flag operation. Marked is the
// number of cells the operation flagged; RemainingNormal is the number of
// cells left NORMAL in the column afterwards, whatever the operation.
type FlagStats struct {
	Marked          int `json:"marked"`
	RemainingNormal int `json:"remaining_normal"`
}

// New creates an empty store with the given flagging tunables.
func New(cfg config.FlaggingConfig) *Store {
	return &Store{cfg: cfg}
}

// Initialize allocates a fresh all-NORMAL grid sized to the dataset.
func (s *Store) Initialize(ds *dataset.Dataset) {
	s.rows = ds.Rows()
	s.cols = ds.Cols()
	s.flags = make([]dataset.Flag, s.rows*s.cols)
}

// Rows returns the grid's row count.
func (s *Store) Rows() int { return s.rows }

// Cols returns the grid's column count.
func (s *Store) Cols() int { return s.cols }

// Get returns the flag at (row, col).
func (s *Store) Get(row, col int) dataset.Flag {
	return s.flags[row*s.cols+col]
}

func (s *Store) set(row, col int, f dataset.Flag) {
	s.flags[row*s.cols+col] = f
}

// Column returns a copy of one column's flags in row order.
func (s *Store) Column(col int) []dataset.Flag {
	out := make([]dataset.Flag, s.rows)
	for row := 0; row < s.rows; row++ {
		out[row] = s.Get(row, col)
	}
	return out
}

// Row returns a copy of one row's flags in column order.
func (s *Store) Row(row int) []dataset.Flag {
	out := make([]dataset.Flag, s.cols)
	copy(out, s.flags[row*s.cols:(row+1)*s.cols])
	return out
}

// Snapshot returns a copy of the whole grid, row-major.
func (s *Store) Snapshot() []dataset.Flag {
	out := make([]dataset.Flag, len(s.flags))
	copy(out, s.flags)
	return out
}

// CountColumn counts cells of one flag kind in a column.
func (s *Store) CountColumn(col int, f dataset.Flag) int {
	count := 0
	for row := 0; row < s.rows; row++ {
		if s.Get(row, col) == f {
			count++
		}
	}
	return count
}

// DropColumn removes one column from the grid, shifting survivors left.
func (s *Store) DropColumn(col int) {
	if s.cols == 0 {
		return
	}
	next := make([]dataset.Flag, s.rows*(s.cols-1))
	for row := 0; row < s.rows; row++ {
		k := row * (s.cols - 1)
		for c := 0; c < s.cols; c++ {
			if c == col {
				continue
			}
			next[k] = s.Get(row, c)
			k++
		}
	}
	s.cols--
	s.flags = next
}

// MarkMissingAndUnexpected flags absent cells MISSING and, for numeric-like
// columns, unparsable tokens UNEXPECTED_TYPE. Overwrite semantics: cells that
// no longer qualify revert to NORMAL.
func (s *Store) MarkMissingAndUnexpected(ds *dataset.Dataset, col int, colType stats.ColumnType) {
	column := ds.Columns[col]
	for row, raw := range column.Values {
		switch {
		case dataset.IsMissing(raw):
			s.set(row, col, dataset.FlagMissing)
		case colType.IsNumericLike():
			if _, ok := dataset.ParseNumeric(raw); !ok {
				s.set(row, col, dataset.FlagUnexpectedType)
			} else if cur := s.Get(row, col); cur == dataset.FlagMissing || cur == dataset.FlagUnexpectedType {
				s.set(row, col, dataset.FlagNormal)
			}
		default:
			if cur := s.Get(row, col); cur == dataset.FlagMissing || cur == dataset.FlagUnexpectedType {
				s.set(row, col, dataset.FlagNormal)
			}
		}
	}
}

// MarkOutliersIQR refreshes a column's outlier flags with distribution-agnostic
// Tukey fences [Q1 - k*IQR, Q3 + k*IQR]. Only NORMAL and OUTLIER cells are
// touched; MISSING, UNEXPECTED_TYPE, and OUTOFBOUNDS are preserved.
func (s *Store) MarkOutliersIQR(ds *dataset.Dataset, col int) FlagStats {
	lower, upper, ok := s.iqrBounds(ds, col, s.cfg.IQRMultiplier)
	if !ok {
		return s.remarkOutliers(ds, col, math.Inf(-1), math.Inf(1))
	}
	return s.remarkOutliers(ds, col, lower, upper)
}

// MarkOutliersAdaptive refreshes a column's outlier flags with bounds chosen
// from its distribution profile: normal data gets mean +/- k*std, skewed data
// standard IQR fences, heavy-tailed data widened IQR fences.
func (s *Store) MarkOutliersAdaptive(ds *dataset.Dataset, col int, profile stats.DistributionProfile) FlagStats {
	var lower, upper float64
	var ok bool
	switch profile.Type {
	case stats.DistNormal:
		mean := profile.Parameters["mean"]
		std := profile.Parameters["std"]
		lower = mean - s.cfg.StdDevMultiplier*std
		upper = mean + s.cfg.StdDevMultiplier*std
		ok = std > 0
	case stats.DistHeavyTailed:
		lower, upper, ok = s.iqrBounds(ds, col, s.cfg.HeavyTailMultiplier)
	default:
		lower, upper, ok = s.iqrBounds(ds, col, s.cfg.IQRMultiplier)
	}
	if !ok {
		return s.remarkOutliers(ds, col, math.Inf(-1), math.Inf(1))
	}
	return s.remarkOutliers(ds, col, lower, upper)
}

// ApplyRange marks parseable cells outside [min, max] OUTOFBOUNDS. The
// operation is all-or-nothing: invalid bounds or a result leaving fewer than
// the configured floor of NORMAL cells reject with the grid untouched.
// MISSING cells are never overwritten.
func (s *Store) ApplyRange(ds *dataset.Dataset, col int, min, max float64) (FlagStats, error) {
	if min >= max {
		return FlagStats{}, errors.ValidationError("range minimum must be below maximum")
	}

	column := ds.Columns[col]
	var toMark []int
	remaining := 0
	for row, raw := range column.Values {
		if s.Get(row, col) != dataset.FlagNormal {
			continue
		}
		v, ok := dataset.ParseNumeric(raw)
		if !ok {
			remaining++
			continue
		}
		if v < min || v > max {
			toMark = append(toMark, row)
		} else {
			remaining++
		}
	}

	if remaining < s.cfg.MinNormalCells {
		return FlagStats{}, errors.ValidationError("range would leave too few normal cells")
	}
	for _, row := range toMark {
		s.set(row, col, dataset.FlagOutOfBounds)
	}
	return FlagStats{Marked: len(toMark), RemainingNormal: remaining}, nil
}

// remarkOutliers applies the overwrite contract: every NORMAL or OUTLIER cell
// is reclassified against the bounds, other flags are left alone.
func (s *Store) remarkOutliers(ds *dataset.Dataset, col int, lower, upper float64) FlagStats {
	column := ds.Columns[col]
	result := FlagStats{}
	for row, raw := range column.Values {
		cur := s.Get(row, col)
		if cur != dataset.FlagNormal && cur != dataset.FlagOutlier {
			continue
		}
		v, ok := dataset.ParseNumeric(raw)
		if !ok {
			// Unparsable cells keep their flag but still count toward the
			// column's NORMAL population, matching ApplyRange.
			if cur == dataset.FlagNormal {
				result.RemainingNormal++
			}
			continue
		}
		if v < lower || v > upper {
			s.set(row, col, dataset.FlagOutlier)
			result.Marked++
		} else {
			s.set(row, col, dataset.FlagNormal)
			result.RemainingNormal++
		}
	}
	return result
}

// iqrBounds computes Tukey fences over the column's parseable non-missing
// values.
func (s *Store) iqrBounds(ds *dataset.Dataset, col int, multiplier float64) (lower, upper float64, ok bool) {
	values, _ := ds.Columns[col].NumericValues()
	if len(values) < 4 {
		return 0, 0, false
	}
	q1, err1 := mstats.Percentile(values, 25)
	q3, err3 := mstats.Percentile(values, 75)
	if err1 != nil || err3 != nil {
		return 0, 0, false
	}
	iqr := q3 - q1
	return q1 - multiplier*iqr, q3 + multiplier*iqr, true
}
