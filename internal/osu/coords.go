package osu

import "univsrg/internal/osufile"

// XFromColumn returns the playfield x coordinate at the centre of column's
// equal-width slot.
func XFromColumn(column, columnCount int) int {
	return (2*column + 1) * osufile.PlayfieldWidth / (2 * columnCount)
}

// ColumnFromX maps an x coordinate to its lane, clamped into [0, columnCount).
func ColumnFromX(x, columnCount int) int {
	column := x * columnCount / osufile.PlayfieldWidth
	switch {
	case column < 0:
		return 0
	case column >= columnCount:
		return columnCount - 1
	default:
		return column
	}
}
