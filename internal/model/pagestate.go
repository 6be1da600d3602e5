package model

// Token is an optional server-issued value.
// Valid is false when the token was not present in the document it was
// extracted from; an empty Value with Valid set is a legitimately empty token.
type Token struct {
	// Value is the raw token text as found in the document.
	Value string

	// Valid reports whether the token was present.
	Valid bool
}

// NewToken returns a present token with the given value.
func NewToken(value string) Token {
	return Token{Value: value, Valid: true}
}

// String returns the token value, or an empty string when absent.
func (t Token) String() string {
	if !t.Valid {
		return ""
	}
	return t.Value
}

// PageState is the pair of hidden postback tokens a server embeds in every
// leaderboard response. The next request of the same session must echo them.
//
// PageState is ephemeral: it is overwritten after every fetch and never
// persisted.
type PageState struct {
	// ViewState is the __VIEWSTATE hidden field.
	ViewState Token

	// PreviousPage is the __PREVIOUSPAGE hidden field. The entry page and
	// the age gate do not carry it.
	PreviousPage Token
}

// IsZero reports whether neither token is present.
func (s PageState) IsZero() bool {
	return !s.ViewState.Valid && !s.PreviousPage.Valid
}

// Merge returns s updated with every token that is present in next.
// Tokens absent from next keep their current value.
func (s PageState) Merge(next PageState) PageState {
	if next.ViewState.Valid {
		s.ViewState = next.ViewState
	}
	if next.PreviousPage.Valid {
		s.PreviousPage = next.PreviousPage
	}
	return s
}
