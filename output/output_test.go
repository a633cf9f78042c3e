package output_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/unkn0wn-root/samplecache"
	"github.com/unkn0wn-root/samplecache/output"
)

func TestParseTagsAndCode(t *testing.T) {
	spec := output.Seq{output.Tag("analysis"), output.Tag("final"), output.Code{}}
	text := "Some preface text\n\n" +
		"<analysis>reasoning...</analysis>\n\nrandom chatter\n\n" +
		"<final>answer</final>\n\nmore stuff\n\n" +
		"```python\nprint(\"hi\")\ntail text\n```\n"

	v, err := output.Parse(spec, text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got, err := output.Strings(v)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"reasoning...", "answer", "print(\"hi\")\ntail text"}
	if fmt.Sprint(got) != fmt.Sprint(want) || len(got) != 3 {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCodeFenceAtEndOfText(t *testing.T) {
	v, err := output.Parse(output.Code{}, "```\nx := 1```")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if v != "x := 1" {
		t.Fatalf("got %q", v)
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]struct {
		spec output.Spec
		text string
		pos  int
	}{
		"no open tag":      {output.Tag("a"), "hello <b>x</b>", 0},
		"no close tag":     {output.Tag("a"), "xx<a>oops", 5},
		"no fence":         {output.Code{}, "plain", 0},
		"fence no newline": {output.Code{}, "```go", 3},
		"fence unclosed":   {output.Code{}, "```go\nfmt.Println()", 6},
		"plus empty":       {output.Plus{Inner: output.Tag("i")}, "nothing", 0},
		"seq second part":  {output.Seq{output.Tag("a"), output.Tag("b")}, "<a>1</a>", 8},
	}
	for name, c := range cases {
		_, err := output.Parse(c.spec, c.text)
		var oe *output.Error
		if !errors.As(err, &oe) {
			t.Errorf("%s: err = %v, want *output.Error", name, err)
			continue
		}
		if !errors.Is(err, output.ErrMalformed) {
			t.Errorf("%s: not ErrMalformed", name)
		}
		if oe.Pos != c.pos {
			t.Errorf("%s: pos = %d, want %d", name, oe.Pos, c.pos)
		}
	}
}

func TestRepetition(t *testing.T) {
	text := "<i>a</i> <i>b</i>\n<i>c</i> then ```\ncode\n```"

	v, err := output.Parse(output.Seq{output.Plus{Inner: output.Tag("i")}, output.Code{}}, text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	parts := v.([]any)
	items, err := output.Strings(parts[0])
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(items) != "[a b c]" {
		t.Fatalf("items = %q", items)
	}
	if parts[1] != "code" {
		t.Fatalf("code = %q", parts[1])
	}

	v, err = output.Parse(output.Star{Inner: output.Tag("x")}, text)
	if err != nil {
		t.Fatalf("Star over nothing: %v", err)
	}
	if l := v.([]any); len(l) != 0 {
		t.Fatalf("Star = %v, want empty", l)
	}
}

func TestParserChecks(t *testing.T) {
	tooLong := errors.New("too long")
	p := output.Parser(output.Tag("n"), func(v any) error {
		if len(v.(string)) > 2 {
			return tooLong
		}
		return nil
	})
	if v, err := p("<n>42</n>"); err != nil || v != "42" {
		t.Fatalf("p = %v, %v", v, err)
	}
	if _, err := p("<n>123</n>"); !errors.Is(err, tooLong) {
		t.Fatalf("err = %v, want check error", err)
	}
}

func TestRetryWithParser(t *testing.T) {
	replies := []string{"no tags here", "<final>", "<final>yes</final>"}
	calls := 0
	gen := samplecache.GeneratorFunc(func(_ context.Context, _ string, n int) ([]string, error) {
		out := make([]string, 0, n)
		for range n {
			out = append(out, replies[calls%len(replies)])
			calls++
		}
		return out, nil
	})
	live, err := samplecache.NewLive(gen, samplecache.Identity{Provider: "mock", Model: "m"}, samplecache.LiveOptions{})
	if err != nil {
		t.Fatal(err)
	}
	c, err := samplecache.NewCached(live, samplecache.Options{})
	if err != nil {
		t.Fatal(err)
	}

	v, err := samplecache.Retry[any](context.Background(), c, "q", 3, output.Parser(output.Tag("final")))
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if v != "yes" {
		t.Fatalf("v = %v", v)
	}

	// the cache replays the same three replies, so two attempts fail
	_, err = samplecache.Retry[any](context.Background(), c, "q", 2, output.Parser(output.Tag("final")))
	var re *samplecache.RetryError
	if !errors.As(err, &re) || !errors.Is(err, output.ErrMalformed) {
		t.Fatalf("err = %v, want RetryError wrapping ErrMalformed", err)
	}
}
