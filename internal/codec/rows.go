package codec

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"github.com/nao1215/boardcrawl/internal/model"
)

// reRowBlock isolates one player row. The site wraps each <tr> in a
// repeater <span>, sometimes closing the span right after the row tag.
var reRowBlock = regexp.MustCompile(`(?s)<span id="[^"]*rptStatsTable_ctl[^"]*"[^>]*>.*?<tr[^>]*>(?:\s*</span>)?(.*?)</tr>`)

var innerWhitespace = regexp.MustCompile(`\s+`)

// Rows is the result of extracting player rows from one document.
type Rows struct {
	// Records are the well-formed rows in document order.
	Records []model.PlayerRecord

	// Warnings describe the row blocks that were skipped.
	Warnings []model.ParseWarning
}

// ExtractPlayerRows returns one record per well-formed row block of doc.
// Blocks with fewer than model.RowCells cells or without a player name are
// skipped and reported in Rows.Warnings. A document without row blocks
// yields empty Rows.
func ExtractPlayerRows(doc string) Rows {
	var rows Rows

	for i, m := range reRowBlock.FindAllStringSubmatch(doc, -1) {
		cells, err := rowCells(m[1])
		if err != nil {
			rows.Warnings = append(rows.Warnings, model.ParseWarning{
				Block:  i,
				Reason: "unparsable row markup: " + err.Error(),
			})
			continue
		}

		rec, ok := model.NewPlayerRecord(cells)
		if !ok {
			reason := "missing player name"
			if len(cells) < model.RowCells {
				reason = "too few cells"
			}
			rows.Warnings = append(rows.Warnings, model.ParseWarning{
				Block:  i,
				Cells:  len(cells),
				Reason: reason,
			})
			continue
		}

		rec.Key = norm.NFC.String(rec.Key)
		rows.Records = append(rows.Records, rec)
	}

	return rows
}

// rowCells parses the inner markup of a row and returns the text of each
// <td> in order.
func rowCells(block string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<table><tr>" + block + "</tr></table>"))
	if err != nil {
		return nil, err
	}

	var cells []string
	doc.Find("td").Each(func(_ int, s *goquery.Selection) {
		var sb strings.Builder
		for _, n := range s.Nodes {
			collectText(n, &sb)
		}
		text := innerWhitespace.ReplaceAllString(sb.String(), " ")
		cells = append(cells, strings.TrimSpace(text))
	})
	return cells, nil
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}
