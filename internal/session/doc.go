// Package session drives one stateful conversation with the leaderboard.
//
// A Client owns a cookie jar and the most recent postback tokens. It walks
// the site through the bootstrap steps (entry page, age gate, first page)
// and then issues rank-jump or next-page postbacks, each echoing the tokens
// returned by the previous response.
//
// A Client is not safe for concurrent use; crawlers create one per worker.
// The request Counter and the optional rate limiter are the only values
// meant to be shared between clients.
package session
