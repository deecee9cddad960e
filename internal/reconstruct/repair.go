package reconstruct

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"brdchat/internal/brderr"
)

// Check rejects a parsed object that does not have the expected shape. A
// rejected object sends the pipeline on to the next stage or cut point.
type Check func(map[string]any) error

// Stage is one fallible transform in the repair pipeline.
type Stage struct {
	Name string
	Fn   func(candidate string, check Check) (map[string]any, error)
}

// Result is a parsed object and the stage that produced it.
type Result struct {
	Value map[string]any
	Stage string
}

// Pipeline tries its stages in order until one parses.
type Pipeline struct {
	stages []Stage
}

func NewPipeline(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// DefaultPipeline: direct parse, tolerant decode, trailing-comma strip,
// bracket balancing, truncation-safe cut.
func DefaultPipeline() *Pipeline {
	return NewPipeline(
		Stage{Name: "direct", Fn: parseDirect},
		Stage{Name: "tolerant", Fn: parseTolerant},
		Stage{Name: "trailing-commas", Fn: parseWithoutTrailingCommas},
		Stage{Name: "balance", Fn: parseBalanced},
		Stage{Name: "safe-cut", Fn: parseSafeCut},
	)
}

// Stages returns the stage names in order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name
	}
	return names
}

// Run returns the first stage result that parses and passes every check.
// When every stage fails the error is brderr.MalformedGenerationJSON with an
// excerpt of the input.
func (p *Pipeline) Run(candidate string, checks ...Check) (Result, error) {
	check := allOf(checks)
	var lastErr error
	for _, s := range p.stages {
		v, err := s.Fn(candidate, check)
		if err == nil {
			return Result{Value: v, Stage: s.Name}, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no repair stages configured")
	}
	return Result{}, brderr.Wrap(brderr.MalformedGenerationJSON, lastErr,
		"Could not parse generated JSON near %q", excerpt(candidate, errorOffset(candidate)))
}

// Repair finds the JSON objects in a raw model response and runs the
// default pipeline on each in turn. The first candidate that yields a
// non-empty object passing checks wins; otherwise the first candidate's
// error is returned.
func Repair(raw string, checks ...Check) (Result, error) {
	candidates := jsonCandidates(raw)
	if len(candidates) == 0 {
		return Result{}, brderr.New(brderr.MalformedGenerationJSON,
			"Generated output contains no JSON object: %q", excerpt(raw, 0))
	}
	checks = append([]Check{nonEmpty}, checks...)
	var firstErr error
	for _, c := range candidates {
		res, err := DefaultPipeline().Run(c, checks...)
		if err == nil {
			return res, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return Result{}, firstErr
}

func nonEmpty(v map[string]any) error {
	if len(v) == 0 {
		return errors.New("empty JSON object")
	}
	return nil
}

func allOf(checks []Check) Check {
	return func(v map[string]any) error {
		for _, c := range checks {
			if c == nil {
				continue
			}
			if err := c(v); err != nil {
				return err
			}
		}
		return nil
	}
}

func accept(v map[string]any, check Check) (map[string]any, error) {
	if v == nil {
		return nil, errors.New("not a JSON object")
	}
	if check != nil {
		if err := check(v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func parseDirect(s string, check Check) (map[string]any, error) {
	var v map[string]any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return accept(v, check)
}

// parseTolerant decodes the first complete value and ignores what follows.
func parseTolerant(s string, check Check) (map[string]any, error) {
	var v map[string]any
	if err := json.NewDecoder(strings.NewReader(s)).Decode(&v); err != nil {
		return nil, err
	}
	return accept(v, check)
}

var trailingComma = regexp.MustCompile(`,\s*([}\]])`)

func stripTrailingCommas(s string) string {
	return trailingComma.ReplaceAllString(s, "$1")
}

func parseWithoutTrailingCommas(s string, check Check) (map[string]any, error) {
	return parseTolerant(stripTrailingCommas(s), check)
}

func parseBalanced(s string, check Check) (map[string]any, error) {
	return parseTolerant(stripTrailingCommas(balance(s)), check)
}

// balance closes an unterminated string and then every open object or
// array, innermost first.
func balance(s string) string {
	var stack []byte
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if n := len(stack); n > 0 && stack[n-1] == c {
				stack = stack[:n-1]
			}
		}
	}

	var b strings.Builder
	b.WriteString(strings.TrimRightFunc(s, isSpace))
	if inString {
		if escaped {
			out := b.String()
			b.Reset()
			b.WriteString(out[:len(out)-1])
		}
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\r' || r == '\t'
}

const maxCutAttempts = 64

// parseSafeCut walks backward from the parse error to positions where a
// value has just ended, cuts there and re-balances. The first cut that
// parses and passes check wins, so only the damaged tail is lost.
func parseSafeCut(s string, check Check) (map[string]any, error) {
	s = stripTrailingCommas(s)
	end := errorOffset(s)
	cuts := cutPoints(s, end)
	var lastErr error = errors.New("no safe cut point")
	for i, cut := range cuts {
		if i >= maxCutAttempts {
			break
		}
		v, err := parseTolerant(stripTrailingCommas(balance(s[:cut])), check)
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("safe cut from offset %d: %w", end, lastErr)
}

// cutPoints lists candidate cut offsets at or before end, nearest first:
// after a closing bracket or a complete string, before a comma, and right
// after an opening bracket.
func cutPoints(s string, end int) []int {
	if end > len(s) {
		end = len(s)
	}
	var points []int
	inString, escaped := false, false
	for i := 0; i < end; i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '}', ']', '{', '[':
			points = append(points, i+1)
		case ',':
			points = append(points, i)
		}
	}
	for l, r := 0, len(points)-1; l < r; l, r = l+1, r-1 {
		points[l], points[r] = points[r], points[l]
	}
	return points
}

// errorOffset reports where s stops being valid JSON, or len(s).
func errorOffset(s string) int {
	var v any
	err := json.Unmarshal([]byte(s), &v)
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) && int(syntaxErr.Offset) <= len(s) {
		return int(syntaxErr.Offset)
	}
	return len(s)
}

func excerpt(s string, at int) string {
	const radius = 80
	if at > len(s) {
		at = len(s)
	}
	start, end := at-radius, at+radius
	if start < 0 {
		start = 0
	}
	if end > len(s) {
		end = len(s)
	}
	return s[start:end]
}
