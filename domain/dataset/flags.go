package dataset

import "errors"

// Flag annotates a single cell with its data-quality state. Flags are stored
// one byte per cell so a full grid stays dense and cheap to copy.
type Flag byte

const (
	FlagNormal Flag = iota
	FlagMissing
	FlagOutlier
	FlagUnexpectedType
	FlagOutOfBounds
)

func (f Flag) String() string {
	switch f {
	case FlagNormal:
		return "normal"
	case FlagMissing:
		return "missing"
	case FlagOutlier:
		return "outlier"
	case FlagUnexpectedType:
		return "unexpected_type"
	case FlagOutOfBounds:
		return "out_of_bounds"
	default:
		return "unknown"
	}
}

var (
	// ErrEmpty signals a dataset with no columns.
	ErrEmpty = errors.New("dataset has no columns")
	// ErrRagged signals columns with differing row counts.
	ErrRagged = errors.New("dataset columns have unequal row counts")
)
