package database

import (
	"context"
	"fmt"
	"sort"

	"github.com/nao1215/boardcrawl/internal/model"
)

// PlayerChange is a player present in both runs with different fields.
type PlayerChange struct {
	Key    string
	Before model.PlayerRecord
	After  model.PlayerRecord
}

// RunDiff compares the player sets of two runs.
type RunDiff struct {
	// From and To are the compared runs.
	From *RunRecord
	To   *RunRecord

	// Added are players only in To, sorted by key.
	Added []model.PlayerRecord

	// Removed are players only in From, sorted by key.
	Removed []model.PlayerRecord

	// Changed are players whose fields differ, sorted by key.
	Changed []PlayerChange

	// Unchanged counts players identical in both runs.
	Unchanged int
}

// Empty reports whether the runs hold identical players.
func (d *RunDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// DiffPlayers compares two player sets.
func DiffPlayers(from, to map[string]model.PlayerRecord) *RunDiff {
	d := &RunDiff{}
	for key, after := range to {
		before, ok := from[key]
		switch {
		case !ok:
			d.Added = append(d.Added, after)
		case before.Fields != after.Fields:
			d.Changed = append(d.Changed, PlayerChange{Key: key, Before: before, After: after})
		default:
			d.Unchanged++
		}
	}
	for key, before := range from {
		if _, ok := to[key]; !ok {
			d.Removed = append(d.Removed, before)
		}
	}

	sort.Slice(d.Added, func(i, j int) bool { return d.Added[i].Key < d.Added[j].Key })
	sort.Slice(d.Removed, func(i, j int) bool { return d.Removed[i].Key < d.Removed[j].Key })
	sort.Slice(d.Changed, func(i, j int) bool { return d.Changed[i].Key < d.Changed[j].Key })
	return d
}

// Diff compares the runs identified by fromID and toID (ids or unique
// prefixes).
func (r *RunDB) Diff(ctx context.Context, fromID, toID string) (*RunDiff, error) {
	from, err := r.GetRun(ctx, fromID)
	if err != nil {
		return nil, err
	}
	to, err := r.GetRun(ctx, toID)
	if err != nil {
		return nil, err
	}

	fromPlayers, err := r.RunPlayers(ctx, from.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", from.ID, err)
	}
	toPlayers, err := r.RunPlayers(ctx, to.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", to.ID, err)
	}

	d := DiffPlayers(fromPlayers, toPlayers)
	d.From = from
	d.To = to
	return d, nil
}
