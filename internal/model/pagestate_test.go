package model

import "testing"

// TestPageStateMerge tests carrying tokens forward between responses.
func TestPageStateMerge(t *testing.T) {
	t.Parallel()

	t.Run("present tokens replace old ones", func(t *testing.T) {
		t.Parallel()

		old := PageState{ViewState: NewToken("vs1"), PreviousPage: NewToken("pp1")}
		got := old.Merge(PageState{ViewState: NewToken("vs2"), PreviousPage: NewToken("pp2")})

		if got.ViewState.Value != "vs2" || got.PreviousPage.Value != "pp2" {
			t.Errorf("expected both tokens replaced, got %+v", got)
		}
	})

	t.Run("absent tokens keep old values", func(t *testing.T) {
		t.Parallel()

		old := PageState{ViewState: NewToken("vs1"), PreviousPage: NewToken("pp1")}
		got := old.Merge(PageState{ViewState: NewToken("vs2")})

		if got.ViewState.Value != "vs2" {
			t.Errorf("expected view state vs2, got %q", got.ViewState.Value)
		}
		if got.PreviousPage.Value != "pp1" {
			t.Errorf("expected previous page pp1 to be kept, got %q", got.PreviousPage.Value)
		}
	})

	t.Run("empty but present token is kept as valid", func(t *testing.T) {
		t.Parallel()

		got := PageState{}.Merge(PageState{PreviousPage: NewToken("")})
		if !got.PreviousPage.Valid {
			t.Error("expected empty previous page token to be valid")
		}
		if got.IsZero() {
			t.Error("expected state with a present token to be non-zero")
		}
	})
}

// TestTokenString tests the String method.
func TestTokenString(t *testing.T) {
	t.Parallel()

	if got := (Token{Value: "stale"}).String(); got != "" {
		t.Errorf("expected absent token to render empty, got %q", got)
	}
	if got := NewToken("abc").String(); got != "abc" {
		t.Errorf("expected 'abc', got %q", got)
	}
}

// TestCrawlManifest tests manifest helpers.
func TestCrawlManifest(t *testing.T) {
	t.Parallel()

	m := CrawlManifest{TotalPages: 3, TotalRecords: 40}.Max(CrawlManifest{TotalPages: 2, TotalRecords: 45})
	if m.TotalPages != 3 || m.TotalRecords != 45 {
		t.Errorf("unexpected max manifest: %+v", m)
	}

	if (CrawlManifest{}).Pages() != 1 {
		t.Error("expected a missing pager to mean one page")
	}
	if (CrawlManifest{TotalPages: 7}).Pages() != 7 {
		t.Error("expected 7 pages")
	}
}
