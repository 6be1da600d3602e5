// Package codec extracts postback state, manifest counters and player rows
// from leaderboard HTML documents.
//
// The leaderboard returns different fragments on first load and on
// postback, and wraps its table rows in markup an HTML tree parser would
// rearrange. Extraction therefore works in two stages: regular expressions
// locate tokens, banners and row blocks in the raw text, and each isolated
// row block is parsed with goquery to read its cells. Every marker is
// optional; a missing marker yields an explicit "absent" result, never a
// guessed default.
//
// All functions are pure: no I/O, no shared state.
package codec
