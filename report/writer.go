package report

import (
	"io"

	"github.com/hupe1980/deepresearch/research"
)

// Writer outputs a research result.
type Writer interface {
	// Write returns the number of bytes written.
	Write(res *research.Result) (int, error)
}

// MultiWriter writes to several Writers in order and stops at the first
// error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs res to all configured Writers.
func (m *MultiWriter) Write(res *research.Result) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(res)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
