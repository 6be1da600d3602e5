// Package fakesite serves an in-process imitation of the postback
// leaderboard for tests. It implements the age gate, the cookie-bound
// session, the rank-jump and next-page postbacks, and can be told to fail
// or corrupt specific pages.
package fakesite
