// Package crawler collects a complete leaderboard with a pool of sessions.
//
// A concurrent crawl runs in two phases. During discovery every worker
// bootstraps its own session and reports the page count it saw to a
// DiscoveryBarrier; the last reporter fills the PageClaimQueue with pages
// 2..N and merges its own first page. After release, workers claim pages
// one at a time, jump to them with a rank postback and upsert the rows into
// a shared ResultStore.
//
// The first transport or protocol error cancels every worker. Run still
// returns the rows collected up to that point so they can be exported.
//
// A sequential crawl uses a single session and walks the pages with the
// pager's next control.
package crawler
