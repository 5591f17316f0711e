package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"

	"github.com/mcncl/jsonview/internal/errors"
	"github.com/mcncl/jsonview/internal/models"
	"github.com/mcncl/jsonview/internal/parser"
)

// DefaultIndent is the indentation unit of pretty-printed output.
const DefaultIndent = "  "

// Formatter is responsible for serializing JSON values as text
type Formatter struct {
	indent string
	parser *parser.Parser
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithIndent sets the indentation unit.
func WithIndent(indent string) Option {
	return func(f *Formatter) { f.indent = indent }
}

// WithParser sets the parser FormatText uses to read raw text.
func WithParser(p *parser.Parser) Option {
	return func(f *Formatter) { f.parser = p }
}

// NewFormatter creates a new Formatter instance
func NewFormatter(opts ...Option) *Formatter {
	f := &Formatter{indent: DefaultIndent, parser: parser.New(parser.Options{})}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FormatText parses raw and returns it pretty-printed. Parse failures are
// returned as format errors.
func (f *Formatter) FormatText(raw string) (string, error) {
	doc, err := f.parser.ParseString(raw)
	if err != nil {
		return "", errors.NewFormatError(errors.Reason(err), err)
	}
	return f.Pretty(doc.Root), nil
}

// Pretty serializes v with one member or element per line, keys in their
// stored order and numbers exactly as they were written.
func (f *Formatter) Pretty(v models.JSONValue) string {
	var b strings.Builder
	f.write(&b, v, 0, true)
	return b.String()
}

// Compact serializes v without any insignificant whitespace.
func (f *Formatter) Compact(v models.JSONValue) string {
	var b strings.Builder
	f.write(&b, v, 0, false)
	return b.String()
}

func (f *Formatter) write(b *strings.Builder, v models.JSONValue, depth int, pretty bool) {
	switch c := v.(type) {
	case *models.JSONObject:
		if c == nil {
			b.WriteString("null")
			return
		}
		if c.Len() == 0 {
			b.WriteString("{}")
			return
		}
		b.WriteByte('{')
		first := true
		for pair := c.Oldest(); pair != nil; pair = pair.Next() {
			if !first {
				b.WriteByte(',')
			}
			first = false
			f.newline(b, depth+1, pretty)
			b.WriteString(quote(pair.Key))
			b.WriteByte(':')
			if pretty {
				b.WriteByte(' ')
			}
			f.write(b, pair.Value, depth+1, pretty)
		}
		f.newline(b, depth, pretty)
		b.WriteByte('}')
	case models.JSONArray:
		if len(c) == 0 {
			b.WriteString("[]")
			return
		}
		b.WriteByte('[')
		for i, e := range c {
			if i > 0 {
				b.WriteByte(',')
			}
			f.newline(b, depth+1, pretty)
			f.write(b, e, depth+1, pretty)
		}
		f.newline(b, depth, pretty)
		b.WriteByte(']')
	case nil:
		b.WriteString("null")
	case string:
		b.WriteString(quote(c))
	case json.Number:
		b.WriteString(c.String())
	case bool:
		if c {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	default:
		// float64 and friends from hand-built values
		out, err := json.Marshal(c)
		if err != nil {
			b.WriteString("null")
			return
		}
		b.Write(out)
	}
}

func (f *Formatter) newline(b *strings.Builder, depth int, pretty bool) {
	if !pretty {
		return
	}
	b.WriteByte('\n')
	for i := 0; i < depth; i++ {
		b.WriteString(f.indent)
	}
}

// quote encodes s as a JSON string without escaping <, > and &.
func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return `""`
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// Styles maps a UI theme to a chroma style.
var Styles = map[string]string{
	"light":         "github",
	"dark":          "monokai",
	"original-dark": "dracula",
}

// StyleFor returns the chroma style for theme, falling back to monokai.
func StyleFor(theme string) string {
	if s, ok := Styles[theme]; ok {
		return s
	}
	return "monokai"
}

// Highlight writes text to w with JSON syntax coloring for a 256-color
// terminal.
func Highlight(w io.Writer, text, style string) error {
	if style == "" {
		style = "monokai"
	}
	if err := quick.Highlight(w, text, "json", "terminal256", style); err != nil {
		return fmt.Errorf("failed to highlight output: %w", err)
	}
	return nil
}

var defaultFormatter = NewFormatter()

// Pretty serializes v with the default two-space indent.
func Pretty(v models.JSONValue) string {
	return defaultFormatter.Pretty(v)
}

// Compact serializes v on a single line.
func Compact(v models.JSONValue) string {
	return defaultFormatter.Compact(v)
}

// FormatText parses raw and pretty-prints it with the default formatter.
func FormatText(raw string) (string, error) {
	return defaultFormatter.FormatText(raw)
}
