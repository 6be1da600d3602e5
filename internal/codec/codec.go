package codec

import "github.com/nao1215/boardcrawl/internal/model"

// Codec extracts structured values from one leaderboard document.
type Codec interface {
	// PageState returns the postback tokens of doc.
	PageState(doc string) (model.PageState, error)

	// TotalRecords returns the record count banner value, or 0.
	TotalRecords(doc string) int

	// TotalPages returns the last page number, or 0.
	TotalPages(doc string) int

	// PlayerRows returns the well-formed rows and the skipped blocks.
	PlayerRows(doc string) Rows
}

// HTMLCodec is the Codec for the ASP.NET leaderboard markup.
type HTMLCodec struct{}

// New returns the default Codec.
func New() HTMLCodec {
	return HTMLCodec{}
}

// PageState implements Codec.
func (HTMLCodec) PageState(doc string) (model.PageState, error) {
	return ExtractPageState(doc)
}

// TotalRecords implements Codec.
func (HTMLCodec) TotalRecords(doc string) int {
	return ExtractTotalRecords(doc)
}

// TotalPages implements Codec.
func (HTMLCodec) TotalPages(doc string) int {
	return ExtractTotalPages(doc)
}

// PlayerRows implements Codec.
func (HTMLCodec) PlayerRows(doc string) Rows {
	return ExtractPlayerRows(doc)
}

// Manifest reads both manifest counters of doc.
func Manifest(c Codec, doc string) model.CrawlManifest {
	return model.CrawlManifest{
		TotalPages:   c.TotalPages(doc),
		TotalRecords: c.TotalRecords(doc),
	}
}
