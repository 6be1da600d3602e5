package codec

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reTotalRecords = regexp.MustCompile(`Displaying .*? of ([0-9,]+) records`)
	reTotalPages   = regexp.MustCompile(`(?s)<a[^>]*id="[^"]*pager_btnLast"[^>]*>\s*(?:\.\.\.)?\s*([0-9,]+)\s*</a>`)
)

// ExtractTotalRecords parses the "Displaying X of N records" banner.
// It returns 0 when the banner is absent.
func ExtractTotalRecords(doc string) int {
	return firstNumber(reTotalRecords, doc)
}

// ExtractTotalPages parses the page number of the pager's last-page control.
// It returns 0 when the control is absent, which the site does when the
// whole leaderboard fits on one page.
func ExtractTotalPages(doc string) int {
	return firstNumber(reTotalPages, doc)
}

func firstNumber(re *regexp.Regexp, doc string) int {
	m := re.FindStringSubmatch(doc)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0
	}
	return n
}
