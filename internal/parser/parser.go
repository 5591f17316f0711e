package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	stderrors "errors" // Standard errors package

	"github.com/tidwall/jsonc"

	"github.com/mcncl/jsonview/internal/errors" // Custom errors package
	"github.com/mcncl/jsonview/internal/models"
)

// Options controls how input text is accepted.
type Options struct {
	// AllowComments strips // and /* */ comments and trailing commas
	// before decoding.
	AllowComments bool
}

// Parser decodes JSON text into ordered models.
type Parser struct {
	opts Options
}

// New creates a Parser with the given options.
func New(opts Options) *Parser {
	return &Parser{opts: opts}
}

var defaultParser = New(Options{})

// Parse converts JSON data from an io.Reader into a Document
func Parse(reader io.Reader) (models.Document, error) {
	return defaultParser.Parse(reader)
}

// ParseString parses JSON from a string
func ParseString(jsonString string) (models.Document, error) {
	return defaultParser.ParseString(jsonString)
}

// ParseFile parses JSON from a file path
func ParseFile(filePath string) (models.Document, error) {
	return defaultParser.ParseFile(filePath)
}

// Parse converts JSON data from an io.Reader into a Document.
func (p *Parser) Parse(reader io.Reader) (models.Document, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return models.Document{}, errors.NewInputError("failed to read input", err)
	}
	return p.ParseBytes(data)
}

// ParseString parses JSON from a string.
func (p *Parser) ParseString(jsonString string) (models.Document, error) {
	if strings.TrimSpace(jsonString) == "" {
		return models.Document{}, errors.NewInputError("input string is empty", errors.ErrEmptyInput)
	}
	return p.ParseBytes([]byte(jsonString))
}

// ParseFile parses JSON from a file path.
func (p *Parser) ParseFile(filePath string) (models.Document, error) {
	if strings.TrimSpace(filePath) == "" {
		return models.Document{}, errors.NewInputError("file path is empty", errors.ErrInvalidFilePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return models.Document{}, errors.NewInputError(
				fmt.Sprintf("file '%s' not found", filePath),
				errors.ErrFileNotFound,
			)
		}
		return models.Document{}, errors.NewInputError(
			fmt.Sprintf("failed to open file '%s'", filePath),
			err,
		)
	}
	if len(data) == 0 {
		return models.Document{}, errors.NewInputError(
			fmt.Sprintf("input file '%s' is empty", filePath),
			errors.ErrFileEmpty,
		)
	}
	return p.ParseBytes(data)
}

// ParseBytes decodes exactly one JSON value from data.
func (p *Parser) ParseBytes(data []byte) (models.Document, error) {
	if p.opts.AllowComments {
		// jsonc blanks out comments in place, so offsets stay valid
		data = jsonc.ToJSON(data)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return models.Document{}, errors.NewParsingError("input is empty or contains only whitespace", errors.ErrEmptyInput)
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber() // Ensure numbers are read as json.Number

	root, err := decodeValue(decoder, 0)
	if err != nil {
		return models.Document{}, diagnose(data, err)
	}

	// Anything other than whitespace after the root value is rejected.
	if _, err := decoder.Token(); !stderrors.Is(err, io.EOF) {
		if err != nil {
			return models.Document{}, errors.NewParsingError(
				"invalid trailing data after first JSON value: "+describe(data, err),
				errors.ErrInvalidJSON,
			)
		}
		return models.Document{}, errors.NewParsingError("multiple JSON values found at the root", errors.ErrMultipleJSON)
	}

	return models.Document{Root: root, Kind: models.KindOf(root)}, nil
}

// decodeValue reads one value from the token stream. Object members are
// stored in first-seen order; a repeated key overwrites the earlier value.
func decodeValue(dec *json.Decoder, depth int) (models.JSONValue, error) {
	tok, err := dec.Token()
	if err != nil {
		if depth > 0 && stderrors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil // string, json.Number, bool or nil
	}

	switch delim {
	case '{':
		obj := models.NewJSONObject()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected object key %v", keyTok)
			}
			val, err := decodeValue(dec, depth+1)
			if err != nil {
				return nil, err
			}
			obj.Set(key, val)
		}
		if err := closeDelim(dec, '}'); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		arr := models.JSONArray{}
		for dec.More() {
			val, err := decodeValue(dec, depth+1)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if err := closeDelim(dec, ']'); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", rune(delim))
	}
}

func closeDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		if stderrors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q but found %v", rune(want), tok)
	}
	return nil
}

// diagnose turns a decoder error into a parsing AppError whose message
// carries a human-readable reason and, where known, a line and column.
func diagnose(data []byte, err error) error {
	if stderrors.Is(err, io.EOF) {
		return errors.NewParsingError("input is empty or contains only whitespace", errors.ErrEmptyInput)
	}
	return errors.NewParsingError(describe(data, err), errors.ErrInvalidJSON)
}

// describe re-validates the whole input with json.Unmarshal, whose syntax
// errors carry absolute offsets; the token stream does not.
func describe(data []byte, err error) string {
	var syntaxError *json.SyntaxError
	if checkErr := json.Unmarshal(data, new(interface{})); stderrors.As(checkErr, &syntaxError) {
		line, col := position(data, syntaxError.Offset)
		return fmt.Sprintf("%s at line %d, column %d", syntaxError.Error(), line, col)
	}
	if stderrors.Is(err, io.ErrUnexpectedEOF) {
		return "unexpected end of JSON input"
	}
	return err.Error()
}

// position converts a byte offset into a 1-based line and column. The
// decoder reports offsets just past the offending byte.
func position(data []byte, offset int64) (int, int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	if offset < 0 {
		offset = 0
	}
	line, col := 1, 0
	for _, b := range data[:offset] {
		if b == '\n' {
			line++
			col = 0
			continue
		}
		col++
	}
	if col == 0 {
		col = 1
	}
	return line, col
}
