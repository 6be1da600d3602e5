// Package main provides the entry point for the boardcrawl CLI.
//
// boardcrawl collects the SOCOM 4 leaderboard into a CSV file. It drives
// the site's ASP.NET postback pages with a pool of concurrent sessions,
// each of which passes the age gate and jumps to the pages it claims.
//
// Usage:
//
//	boardcrawl crawl
//	boardcrawl crawl --workers 8 --output-dir out
//	boardcrawl history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
