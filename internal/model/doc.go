// Package model defines the data structures shared across boardcrawl.
//
// This package contains the following main types:
//   - PageState: the postback tokens a session must echo on its next request
//   - PlayerRecord: one leaderboard row keyed by player name
//   - CrawlManifest: page and record counts discovered from the first page
//   - ParseWarning: a row block that could not be turned into a record
//   - RunSummary: the statistics of a finished (or aborted) crawl
//
// The models live in their own package because codec, session, crawler,
// database and report all exchange them.
package model
