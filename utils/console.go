package utils

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// ConsoleWriter writes lines to a terminal or pipe whose encoding may not cover every
// character. Invalid UTF-8 and unencodable runes degrade to a replacement marker
// instead of failing the write.
type ConsoleWriter struct {
	mu      sync.Mutex
	w       io.Writer
	encoder *encoding.Encoder // nil for UTF-8
}

// NewConsoleWriter wraps w using the named output encoding (e.g. "utf-8", "shift_jis")
func NewConsoleWriter(w io.Writer, encodingName string) (*ConsoleWriter, error) {
	if encodingName == "" {
		encodingName = "utf-8"
	}
	enc, err := htmlindex.Get(encodingName)
	if err != nil {
		return nil, fmt.Errorf("unknown output encoding %q: %w", encodingName, err)
	}

	cw := &ConsoleWriter{w: w}
	if name, _ := htmlindex.Name(enc); name != "utf-8" {
		cw.encoder = encoding.ReplaceUnsupported(enc.NewEncoder())
	}
	return cw, nil
}

// WriteLine writes s followed by a newline
func (c *ConsoleWriter) WriteLine(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s = strings.ToValidUTF8(s, string(replacementChar))
	if c.encoder != nil {
		encoded, err := c.encoder.String(s)
		if err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		s = encoded
	}
	_, err := io.WriteString(c.w, s+"\n")
	return err
}
