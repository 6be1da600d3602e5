package fakesite

import (
	"fmt"
	"strings"
)

func gatePage() string {
	return `<html><body><form method="post" action="` + GatePath + `">
<input type="hidden" name="__VIEWSTATE" id="__VIEWSTATE" value="` + gateStateVal + `" />
<select name="dlDate1"></select><select name="dlDate2"></select><select name="dlDate3"></select>
<a id="lbSubmit" href="javascript:__doPostBack('lbsubmit','')">Submit</a>
</form></body></html>`
}

// fullPage renders a complete document, as returned for GET requests.
func (s *Server) fullPage(page int) string {
	var sb strings.Builder
	sb.WriteString("<html><body><form method=\"post\">\n")
	if page != s.opts.DropViewStatePage {
		fmt.Fprintf(&sb, "<input type=\"hidden\" name=\"__VIEWSTATE\" id=\"__VIEWSTATE\" value=\"%s\" />\n", stateFor(page))
	}
	fmt.Fprintf(&sb, "<input type=\"hidden\" name=\"__PREVIOUSPAGE\" id=\"__PREVIOUSPAGE\" value=\"%s\" />\n", "prev-"+stateFor(page))
	sb.WriteString(s.panel(page))
	sb.WriteString("</form></body></html>")
	return sb.String()
}

// deltaPage renders a partial postback response.
func (s *Server) deltaPage(page int) string {
	panel := s.panel(page)
	var sb strings.Builder
	fmt.Fprintf(&sb, "1|#||4|%d|updatePanel|ctl00_phContent_leaderboards_panelLeaderBoards|%s|", len(panel), panel)
	if page != s.opts.DropViewStatePage {
		st := stateFor(page)
		fmt.Fprintf(&sb, "%d|hiddenField|__VIEWSTATE|%s|", len(st), st)
	}
	if page != s.opts.DropPreviousPagePage {
		prev := "prev-" + stateFor(page)
		fmt.Fprintf(&sb, "%d|hiddenField|__PREVIOUSPAGE|%s|", len(prev), prev)
	}
	return sb.String()
}

func (s *Server) panel(page int) string {
	s.mu.Lock()
	s.served[page]++
	s.mu.Unlock()

	first := (page-1)*s.opts.PageSize + 1
	last := min(page*s.opts.PageSize, s.opts.Records)

	var sb strings.Builder
	fmt.Fprintf(&sb, "<div class=\"banner\">Displaying %d - %d of %d records</div>\n", first, last, s.opts.Records)
	sb.WriteString("<table class=\"stats\">\n")
	for i := first; i <= last; i++ {
		ctl := i - first + 1
		fmt.Fprintf(&sb, "<span id=\"ctl00_phContent_leaderboards_rptStatsTable_ctl%02d_row\"><tr class=\"row\"></span>", ctl)
		fmt.Fprintf(&sb, "<td class=\"rank\">%d</td>", i)
		fmt.Fprintf(&sb, "<td class=\"name\"> <a href=\"/profile/%d\">%s</a> </td>", i, s.opts.Name(i))
		for c := 0; c < 7; c++ {
			fmt.Fprintf(&sb, "<td class=\"stat\">%d</td>", i*10+c)
		}
		sb.WriteString("</tr>\n")
	}
	if page == s.opts.MalformedPage {
		sb.WriteString("<span id=\"ctl00_phContent_leaderboards_rptStatsTable_ctl99_row\"><tr class=\"row\"></span><td class=\"rank\">0</td><td class=\"name\">broken</td><td class=\"stat\">0</td></tr>\n")
	}
	sb.WriteString("</table>\n")
	if s.Pages() > 1 {
		fmt.Fprintf(&sb, "<a id=\"ctl00_phContent_leaderboards_pager_btnLast\" href=\"javascript:__doPostBack('ctl00$phContent$leaderboards$pager$btnLast','')\">... %d</a>\n", s.Pages())
	}
	return sb.String()
}
