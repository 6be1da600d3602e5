package model

import "strings"

// Leaderboard row layout. A well-formed row has at least RowCells cells:
// position 0 is the rank, position 1 the player name and 2..8 the stats.
const (
	// RowCells is the minimum number of cells in a well-formed row.
	RowCells = 9

	// FieldCount is the number of non-key fields stored per player.
	FieldCount = 8

	// NameCell is the cell position of the player name.
	NameCell = 1
)

// fieldCells maps each stored field to its cell position in a row.
var fieldCells = [FieldCount]int{0, 2, 3, 4, 5, 6, 7, 8}

// PlayerRecord is a single leaderboard entry.
type PlayerRecord struct {
	// Key is the player name with commas stripped. It is unique within
	// a result set.
	Key string `json:"key"`

	// Fields holds rank followed by the seven stat columns.
	Fields [FieldCount]string `json:"fields"`
}

// NewPlayerRecord builds a record from the ordered cell values of a row.
// It returns false when there are fewer than RowCells cells or the name
// cell is empty.
func NewPlayerRecord(cells []string) (PlayerRecord, bool) {
	if len(cells) < RowCells {
		return PlayerRecord{}, false
	}

	key := CleanCell(cells[NameCell])
	if key == "" {
		return PlayerRecord{}, false
	}

	rec := PlayerRecord{Key: key}
	for i, pos := range fieldCells {
		rec.Fields[i] = CleanCell(cells[pos])
	}
	return rec, true
}

// Rank returns the rank column.
func (r PlayerRecord) Rank() string {
	return r.Fields[0]
}

// Stats returns the seven stat columns.
func (r PlayerRecord) Stats() []string {
	return r.Fields[1:]
}

// Columns returns the key followed by all fields, the layout used for
// delimited export.
func (r PlayerRecord) Columns() []string {
	cols := make([]string, 0, FieldCount+1)
	cols = append(cols, r.Key)
	cols = append(cols, r.Fields[:]...)
	return cols
}

// CleanCell trims whitespace and removes commas so that the value can be
// written to a comma separated file without quoting.
func CleanCell(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
}
