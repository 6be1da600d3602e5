// Package database keeps the crawl history in SQLite.
//
// Every run, complete or aborted, is stored with its summary, a digest of
// its player set and the players themselves. A cumulative player archive
// keeps the latest row seen for every player across runs, since one crawl
// of a leaderboard that shifts while it is being read misses some players.
//
// The driver is modernc.org/sqlite, which needs no cgo.
package database
