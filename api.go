package samplecache

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Identity is what a cached sequence is keyed by, besides the prompt.
// Alias, when set, replaces Provider so a cache can be reused after moving
// the same model to another provider.
type Identity struct {
	Provider    string
	Model       string
	Alias       string
	Temperature float64
	Params      map[string]string // further sampling parameters, e.g. top_p
}

// Source is the alias if set, the provider otherwise.
func (id Identity) Source() string {
	if id.Alias != "" {
		return id.Alias
	}
	return id.Provider
}

func (id Identity) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s/%s@%g", id.Source(), id.Model, id.Temperature)
	if len(id.Params) > 0 {
		keys := make([]string, 0, len(id.Params))
		for k := range id.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, ",%s=%s", k, id.Params[k])
		}
	}
	return b.String()
}

// Generator is the transport to a provider. It returns up to n samples for
// prompt, in order, sampled with whatever parameters it was configured with.
// n never exceeds the provider batch limit given to the Dispatcher.
type Generator interface {
	Generate(ctx context.Context, prompt string, n int) ([]string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string, n int) ([]string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string, n int) ([]string, error) {
	return f(ctx, prompt, n)
}

// Model is the composable sampling unit.
type Model interface {
	Identity() Identity

	// Sample returns a new lazy stream for prompt. It never blocks.
	// batch is a read-ahead amount, not a cap: when a stream runs dry it
	// fetches batch more samples. batch < 1 is treated as 1.
	Sample(prompt string, batch int) Stream
}

// Fetcher produces n fresh samples, bypassing any cache.
type Fetcher interface {
	Fetch(ctx context.Context, prompt string, n int) ([]string, error)
}

// Sequencer is a model backed by an indexed sequence per fingerprint.
// Independent uses it to read from its own cursor instead of index 0.
type Sequencer interface {
	Model
	Fingerprint(prompt string) string
	At(ctx context.Context, prompt string, index, batch int) (string, error)
}
