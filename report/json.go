package report

import (
	"encoding/json"
	"io"

	"github.com/hupe1980/deepresearch/research"
)

// JSONWriter outputs results as JSON.
type JSONWriter struct {
	baseWriter
	indent string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint enables two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) { w.indent = "  " }
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer.
func (w *JSONWriter) Write(res *research.Result) (int, error) {
	var (
		data []byte
		err  error
	)

	if w.indent != "" {
		data, err = json.MarshalIndent(res, "", w.indent)
	} else {
		data, err = json.Marshal(res)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')

	return w.output.Write(data)
}
