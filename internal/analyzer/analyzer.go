// Package analyzer summarizes the shape of a JSON document: how many values
// of each kind it holds, how deep it nests, and which well-known string and
// number formats appear in it.
package analyzer

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/mcncl/jsonview/internal/models"
	"github.com/mcncl/jsonview/internal/tree"
)

// Format names a recognizable scalar format.
type Format string

const (
	FormatUUID      Format = "uuid"
	FormatTimestamp Format = "timestamp"
	FormatDate      Format = "date"
	FormatUnixTime  Format = "unix_time"
	FormatUnixMilli Format = "unix_millis"
	FormatURL       Format = "url"
	FormatEmail     Format = "email"
)

// Regex patterns for special formats
var (
	uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

	// Time format patterns (ordered by specificity - most specific first)
	rfc3339Regex       = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})$`)
	iso8601Regex       = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?([+-]\d{2}:\d{2}|Z|[+-]\d{4})?$`)
	dateTimeRegex      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}(\.\d+)?$`)
	dateOnlyRegex      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	unixTimestampRegex = regexp.MustCompile(`^1[0-9]{9}$`)  // seconds since 1970
	unixMilliRegex     = regexp.MustCompile(`^1[0-9]{12}$`) // milliseconds since 1970

	urlRegex   = regexp.MustCompile(`^https?://[^\s/$.?#].[^\s]*$`)
	emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// ArrayInfo locates an array.
type ArrayInfo struct {
	Path string
	Len  int
}

// Stats describes a document.
type Stats struct {
	Nodes   int
	Objects int
	Arrays  int
	Scalars map[models.ScalarType]int
	// Integers and Floats split Scalars[TypeNumber].
	Integers int
	Floats   int

	// Members counts object entries; UniqueKeys counts distinct key names.
	Members    int
	UniqueKeys int
	MaxDepth   int

	LargestArray ArrayInfo
	// Truncated counts arrays longer than the reveal limit.
	Truncated int

	Formats map[Format]int
}

// Analyzer computes Stats.
type Analyzer struct {
	revealLimit int
}

// NewAnalyzer creates an Analyzer. A revealLimit <= 0 means
// tree.DefaultRevealLimit.
func NewAnalyzer(revealLimit int) *Analyzer {
	if revealLimit <= 0 {
		revealLimit = tree.DefaultRevealLimit
	}
	return &Analyzer{revealLimit: revealLimit}
}

// Analyze walks every value of v, including array elements the viewer has
// not revealed yet.
func (a *Analyzer) Analyze(v models.JSONValue) Stats {
	s := Stats{
		Scalars:      make(map[models.ScalarType]int),
		Formats:      make(map[Format]int),
		LargestArray: ArrayInfo{Len: -1},
	}
	keys := make(map[string]struct{})
	a.analyzeNode(&s, keys, v, "", 0)
	s.UniqueKeys = len(keys)
	if s.LargestArray.Len < 0 {
		s.LargestArray = ArrayInfo{}
	}
	return s
}

func (a *Analyzer) analyzeNode(s *Stats, keys map[string]struct{}, v models.JSONValue, path string, depth int) {
	s.Nodes++
	if depth > s.MaxDepth {
		s.MaxDepth = depth
	}

	switch val := v.(type) {
	case *models.JSONObject:
		if val == nil {
			s.Scalars[models.TypeNull]++
			return
		}
		s.Objects++
		for pair := val.Oldest(); pair != nil; pair = pair.Next() {
			s.Members++
			keys[pair.Key] = struct{}{}
			a.analyzeNode(s, keys, pair.Value, tree.KeyPath(path, pair.Key), depth+1)
		}
	case models.JSONArray:
		s.Arrays++
		if len(val) > s.LargestArray.Len {
			s.LargestArray = ArrayInfo{Path: path, Len: len(val)}
		}
		if len(val) > a.revealLimit {
			s.Truncated++
		}
		for i, elem := range val {
			a.analyzeNode(s, keys, elem, tree.IndexPath(path, i), depth+1)
		}
	case string:
		s.Scalars[models.TypeString]++
		if f, ok := analyzeString(val); ok {
			s.Formats[f]++
		}
	case json.Number:
		s.Scalars[models.TypeNumber]++
		if _, err := val.Int64(); err == nil {
			s.Integers++
		} else {
			s.Floats++
		}
		if f, ok := analyzeNumber(val); ok {
			s.Formats[f]++
		}
	default:
		s.Scalars[models.ScalarTypeOf(v)]++
	}
}

func analyzeString(str string) (Format, bool) {
	switch {
	case uuidRegex.MatchString(str):
		return FormatUUID, true
	case rfc3339Regex.MatchString(str), iso8601Regex.MatchString(str), dateTimeRegex.MatchString(str):
		return FormatTimestamp, true
	case dateOnlyRegex.MatchString(str):
		return FormatDate, true
	case urlRegex.MatchString(str):
		return FormatURL, true
	case emailRegex.MatchString(str):
		return FormatEmail, true
	}
	return "", false
}

func analyzeNumber(num json.Number) (Format, bool) {
	switch numStr := string(num); {
	case unixTimestampRegex.MatchString(numStr):
		return FormatUnixTime, true
	case unixMilliRegex.MatchString(numStr):
		return FormatUnixMilli, true
	}
	return "", false
}

// Summary is a one-line description, e.g.
// "42 nodes, 3 objects, 2 arrays, depth 4".
func (s Stats) Summary() string {
	return fmt.Sprintf("%d nodes, %d objects, %d arrays, depth %d", s.Nodes, s.Objects, s.Arrays, s.MaxDepth)
}

// Lines renders the full report, one fact per line.
func (s Stats) Lines() []string {
	lines := []string{
		fmt.Sprintf("Nodes:         %d", s.Nodes),
		fmt.Sprintf("Objects:       %d (%d members, %d distinct keys)", s.Objects, s.Members, s.UniqueKeys),
		fmt.Sprintf("Arrays:        %d", s.Arrays),
		fmt.Sprintf("Strings:       %d", s.Scalars[models.TypeString]),
		fmt.Sprintf("Numbers:       %d (%d integers, %d floats)", s.Scalars[models.TypeNumber], s.Integers, s.Floats),
		fmt.Sprintf("Booleans:      %d", s.Scalars[models.TypeBoolean]),
		fmt.Sprintf("Nulls:         %d", s.Scalars[models.TypeNull]),
		fmt.Sprintf("Max depth:     %d", s.MaxDepth),
	}
	if s.Arrays > 0 {
		lines = append(lines, fmt.Sprintf("Largest array: %s (%s)", displayPath(s.LargestArray.Path), tree.Items(s.LargestArray.Len)))
	}
	if s.Truncated > 0 {
		lines = append(lines, fmt.Sprintf("Truncated:     %d arrays", s.Truncated))
	}
	if len(s.Formats) > 0 {
		names := make([]string, 0, len(s.Formats))
		for f := range s.Formats {
			names = append(names, string(f))
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, n := range names {
			parts = append(parts, fmt.Sprintf("%s=%d", n, s.Formats[Format(n)]))
		}
		lines = append(lines, "Formats:       "+strings.Join(parts, ", "))
	}
	return lines
}

func displayPath(path string) string {
	return tree.DisplayPath(&tree.Node{Path: path})
}
