// Package report renders run summaries.
//
// SimpleWriter prints the terminal banner shown at the end of every crawl.
// MarkdownWriter produces a shareable run report. Both implement Writer.
package report
