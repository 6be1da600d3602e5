package report

import (
	"io"

	"github.com/nao1215/boardcrawl/internal/model"
)

// Writer outputs a run summary.
type Writer interface {
	// Write renders the summary and returns the number of bytes written.
	Write(summary *model.RunSummary) (int, error)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
