package model

// CrawlManifest describes the size of the leaderboard as reported by the
// first page of a session.
type CrawlManifest struct {
	// TotalPages is the page number of the pager's "last" control.
	// Zero means the control was absent (a single page).
	TotalPages int `json:"total_pages"`

	// TotalRecords is the "Displaying X of N records" banner value.
	// It is informational only; zero means unknown.
	TotalRecords int `json:"total_records"`
}

// Max returns the element-wise maximum of m and other.
func (m CrawlManifest) Max(other CrawlManifest) CrawlManifest {
	if other.TotalPages > m.TotalPages {
		m.TotalPages = other.TotalPages
	}
	if other.TotalRecords > m.TotalRecords {
		m.TotalRecords = other.TotalRecords
	}
	return m
}

// Pages returns the number of pages to crawl. A missing pager means the
// leaderboard fits on one page.
func (m CrawlManifest) Pages() int {
	if m.TotalPages < 1 {
		return 1
	}
	return m.TotalPages
}
