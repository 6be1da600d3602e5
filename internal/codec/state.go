package codec

import (
	"errors"
	"regexp"

	"golang.org/x/net/html"

	"github.com/nao1215/boardcrawl/internal/model"
)

// Hidden field names of the postback protocol.
const (
	FieldViewState    = "__VIEWSTATE"
	FieldPreviousPage = "__PREVIOUSPAGE"
)

// ErrStateNotFound is returned when a document carries neither postback token.
var ErrStateNotFound = errors.New("page state not found")

var (
	// Full page: <input type="hidden" name="__VIEWSTATE" id="__VIEWSTATE" value="..." />
	reViewState    = regexp.MustCompile(`__VIEWSTATE" value="([^"]*)"`)
	rePreviousPage = regexp.MustCompile(`__PREVIOUSPAGE" value="([^"]*)"`)

	// Partial postback delta: ...|hiddenField|__VIEWSTATE|<value>|...
	reDeltaViewState    = regexp.MustCompile(`\|hiddenField\|__VIEWSTATE\|([^|]*)\|`)
	reDeltaPreviousPage = regexp.MustCompile(`\|hiddenField\|__PREVIOUSPAGE\|([^|]*)\|`)
)

// ExtractPageState locates the view state and previous page tokens of doc.
// Either token may be absent; absence is reported through Token.Valid.
// ErrStateNotFound is returned only when both are missing.
func ExtractPageState(doc string) (model.PageState, error) {
	state := model.PageState{
		ViewState:    findToken(doc, reViewState, reDeltaViewState),
		PreviousPage: findToken(doc, rePreviousPage, reDeltaPreviousPage),
	}
	if state.IsZero() {
		return state, ErrStateNotFound
	}
	return state, nil
}

// findToken returns the first match of the full-page pattern, falling back
// to the delta pattern.
func findToken(doc string, page, delta *regexp.Regexp) model.Token {
	if m := page.FindStringSubmatch(doc); m != nil {
		return model.NewToken(html.UnescapeString(m[1]))
	}
	if m := delta.FindStringSubmatch(doc); m != nil {
		return model.NewToken(m[1])
	}
	return model.Token{}
}
