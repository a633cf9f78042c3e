package samplecache

import (
	"context"
	"errors"
	"time"
)

// LiveOptions configures a Live model.
type LiveOptions struct {
	// MaxBatch is the most samples the provider returns per request. Default 1.
	MaxBatch int
	// Parallelism bounds concurrent provider requests per fetch. Default 4.
	Parallelism int

	Logger Logger
	Hooks  Hooks
}

// Live samples straight from a provider. It keeps no state across Sample
// calls: every stream fetches its own fresh samples.
type Live struct {
	id    Identity
	disp  *Dispatcher
	log   Logger
	hooks Hooks
}

var (
	_ Model   = (*Live)(nil)
	_ Fetcher = (*Live)(nil)
)

func NewLive(gen Generator, id Identity, opts LiveOptions) (*Live, error) {
	if gen == nil {
		return nil, errors.New("samplecache: nil generator")
	}
	if id.Model == "" {
		return nil, errors.New("samplecache: identity has no model name")
	}
	if opts.MaxBatch < 0 || opts.Parallelism < 0 {
		return nil, errors.New("samplecache: negative MaxBatch or Parallelism")
	}
	l := &Live{
		id:    id,
		disp:  NewDispatcher(gen, id, opts.MaxBatch, opts.Parallelism),
		log:   coalesce[Logger](opts.Logger, NopLogger{}),
		hooks: coalesce[Hooks](opts.Hooks, NopHooks{}),
	}
	return l, nil
}

func (l *Live) Identity() Identity { return l.id }

// Fetch returns n fresh samples through the dispatcher.
func (l *Live) Fetch(ctx context.Context, prompt string, n int) ([]string, error) {
	fp := Fingerprint(l.id, prompt)
	start := time.Now()
	vals, err := l.disp.Fetch(ctx, prompt, n)
	if err != nil {
		l.hooks.FetchFailed(fp, err)
		l.log.Warn("fetch failed", Fields{"fp": shortFP(fp), "n": n, "err": err})
		return nil, err
	}
	took := time.Since(start)
	l.hooks.Fetched(fp, len(vals), took)
	l.log.Debug("fetched", Fields{"fp": shortFP(fp), "n": len(vals), "took": took})
	return vals, nil
}

func (l *Live) Sample(prompt string, batch int) Stream {
	return &liveStream{l: l, prompt: prompt, batch: max(batch, 1)}
}

type liveStream struct {
	l      *Live
	prompt string
	batch  int
	buf    []string
}

func (s *liveStream) Next(ctx context.Context) (string, error) {
	if len(s.buf) == 0 {
		vals, err := s.l.Fetch(ctx, s.prompt, s.batch)
		if err != nil {
			return "", err
		}
		s.buf = vals
	}
	v := s.buf[0]
	s.buf = s.buf[1:]
	return v, nil
}
