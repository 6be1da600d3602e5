package session

import (
	"strconv"

	"github.com/nao1215/boardcrawl/internal/codec"
)

// Postback form fields.
const (
	fieldEventTarget    = "__EVENTTARGET"
	fieldEventArgument  = "__EVENTARGUMENT"
	fieldGateMonth      = "dlDate1"
	fieldGateDay        = "dlDate2"
	fieldGateYear       = "dlDate3"
	fieldGateManager    = "scriptManager"
	fieldBoardName      = "ctl00$phContent$leaderboards$txtName"
	fieldBoardGoToRank  = "ctl00$phContent$leaderboards$btnGoToRank"
	fieldBoardRank      = "ctl00$phContent$leaderboards$txtRank"
	fieldBoardManager   = "ctl00$scriptManager"
	gateEventTarget     = "lbsubmit"
	gateManagerValue    = "panelCulture|lbSubmit"
	boardPanel          = "ctl00$phContent$leaderboards$panelLeaderBoards"
	nextPageEventTarget = "ctl00$phContent$leaderboards$pager$btnNext"
)

// RankForPage returns the 1-based rank of the first row on page.
func RankForPage(page, pageSize int) int {
	return (page-1)*pageSize + 1
}

func gateForm(viewState string, bd BirthDate) map[string]string {
	return map[string]string{
		codec.FieldViewState: viewState,
		fieldEventTarget:     gateEventTarget,
		fieldEventArgument:   "",
		fieldGateMonth:       strconv.Itoa(bd.Month),
		fieldGateDay:         strconv.Itoa(bd.Day),
		fieldGateYear:        strconv.Itoa(bd.Year),
		fieldGateManager:     gateManagerValue,
	}
}

func rankForm(viewState, previousPage string, rank int) map[string]string {
	return map[string]string{
		codec.FieldViewState:    viewState,
		codec.FieldPreviousPage: previousPage,
		fieldEventTarget:        "",
		fieldEventArgument:      "",
		fieldBoardName:          "",
		fieldBoardGoToRank:      "GO",
		fieldBoardRank:          strconv.Itoa(rank),
		fieldBoardManager:       boardPanel + "|" + fieldBoardGoToRank,
	}
}

func nextPageForm(viewState, previousPage string) map[string]string {
	return map[string]string{
		codec.FieldViewState:    viewState,
		codec.FieldPreviousPage: previousPage,
		fieldEventTarget:        nextPageEventTarget,
		fieldEventArgument:      "",
		fieldBoardManager:       boardPanel + "|" + nextPageEventTarget,
	}
}
