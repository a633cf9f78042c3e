// Package output extracts structured parts from free-form model output.
//
// A Spec describes what to look for, in order, anywhere in the text:
//
//	spec := output.Seq{output.Tag("analysis"), output.Tag("final"), output.Code{}}
//	v, err := output.Parse(spec, raw)
//	// v is []any{"...analysis...", "...final...", "...code..."}
//
// Text between matches is ignored. Matching is greedy and never backtracks,
// so a repetition swallows every occurrence it can before the next part of a
// Seq is tried. Parser adapts a Spec to samplecache.Retry.
package output

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is matched by every *Error.
var ErrMalformed = errors.New("malformed model output")

// Error reports where matching failed.
type Error struct {
	Pos int
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("output: %s at %d", e.Msg, e.Pos)
}

func (e *Error) Is(target error) bool { return target == ErrMalformed }

func errorf(pos int, format string, args ...any) *Error {
	return &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// Spec is one of Tag, Code, Seq, Star or Plus.
type Spec interface {
	match(text string, pos int) (match, error)
}

type match struct {
	start, end int
	value      any
}

// Tag matches <name>...</name> and yields the content as a string.
type Tag string

func (t Tag) match(text string, pos int) (match, error) {
	openTok, closeTok := "<"+string(t)+">", "</"+string(t)+">"
	start := index(text, openTok, pos)
	if start < 0 {
		return match{}, errorf(pos, "expected opening tag %s", openTok)
	}
	contentStart := start + len(openTok)
	closePos := index(text, closeTok, contentStart)
	if closePos < 0 {
		return match{}, errorf(contentStart, "expected closing tag %s", closeTok)
	}
	return match{start, closePos + len(closeTok), text[contentStart:closePos]}, nil
}

// Code matches a markdown code block and yields its body as a string,
// without the info string. The closing fence may end the text without a
// preceding newline.
type Code struct{}

const fence = "```"

func (Code) match(text string, pos int) (match, error) {
	start := index(text, fence, pos)
	if start < 0 {
		return match{}, errorf(pos, "expected markdown code fence %s", fence)
	}
	afterOpen := start + len(fence)
	nl := index(text, "\n", afterOpen)
	if nl < 0 {
		return match{}, errorf(afterOpen, "unterminated code block: no newline after opening fence")
	}
	codeStart := nl + 1

	if closeAt := index(text, "\n"+fence, codeStart); closeAt >= 0 {
		return match{start, closeAt + 1 + len(fence), text[codeStart:closeAt]}, nil
	}
	closeAt := index(text, fence, codeStart)
	if closeAt < 0 {
		return match{}, errorf(codeStart, "unterminated code block: missing closing fence %s", fence)
	}
	return match{start, closeAt + len(fence), text[codeStart:closeAt]}, nil
}

// Seq matches its parts one after another and yields []any of their values.
type Seq []Spec

func (s Seq) match(text string, pos int) (match, error) {
	m := match{start: pos, end: pos}
	values := make([]any, 0, len(s))
	cur := pos
	for i, part := range s {
		pm, err := part.match(text, cur)
		if err != nil {
			return match{}, err
		}
		if i == 0 {
			m.start = pm.start
		}
		values = append(values, pm.value)
		cur = pm.end
	}
	m.end = cur
	m.value = values
	return m, nil
}

// Star matches Inner zero or more times and yields []any.
type Star struct{ Inner Spec }

func (s Star) match(text string, pos int) (match, error) {
	return repeat(s.Inner, text, pos, 0)
}

// Plus matches Inner one or more times and yields []any.
type Plus struct{ Inner Spec }

func (p Plus) match(text string, pos int) (match, error) {
	return repeat(p.Inner, text, pos, 1)
}

func repeat(inner Spec, text string, pos, minCount int) (match, error) {
	m := match{start: -1, end: pos}
	values := []any{}
	cur := pos
	for {
		im, err := inner.match(text, cur)
		if err != nil {
			var oe *Error
			if errors.As(err, &oe) {
				break
			}
			return match{}, err
		}
		if im.end <= cur {
			break // no progress
		}
		if m.start < 0 {
			m.start = im.start
		}
		values = append(values, im.value)
		m.end = im.end
		cur = im.end
	}
	if len(values) < minCount {
		return match{}, errorf(pos, "expected at least %d occurrence(s), got %d", minCount, len(values))
	}
	if m.start < 0 {
		m.start = pos
	}
	m.value = values
	return m, nil
}

func index(text, sub string, from int) int {
	if from > len(text) {
		return -1
	}
	i := strings.Index(text[from:], sub)
	if i < 0 {
		return -1
	}
	return from + i
}

// Parse matches spec against text from the start and returns its value:
// a string for Tag and Code, []any for Seq, Star and Plus.
func Parse(spec Spec, text string) (any, error) {
	if spec == nil {
		return nil, errors.New("output: nil spec")
	}
	m, err := spec.match(text, 0)
	if err != nil {
		return nil, err
	}
	return m.value, nil
}

// Parser returns a parse func for samplecache.Retry. Each check runs on
// the parsed value in order; the first error rejects the sample.
func Parser(spec Spec, checks ...func(any) error) func(raw string) (any, error) {
	return func(raw string) (any, error) {
		v, err := Parse(spec, raw)
		if err != nil {
			return nil, err
		}
		for _, check := range checks {
			if err := check(v); err != nil {
				return nil, err
			}
		}
		return v, nil
	}
}

// Strings converts a []any of strings, as yielded by Seq, Star and Plus
// over Tag or Code, to []string.
func Strings(v any) ([]string, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("output: %T is not a list", v)
	}
	out := make([]string, len(list))
	for i, e := range list {
		s, ok := e.(string)
		if !ok {
			return nil, fmt.Errorf("output: element %d is %T, not a string", i, e)
		}
		out[i] = s
	}
	return out, nil
}
