package samplecache

import (
	"context"
	"errors"

	"github.com/unkn0wn-root/samplecache/cursor"
)

// Independent makes every Sample call continue where the previous one for
// the same prompt stopped, so no two streams from one Independent ever
// return the same position of the underlying sequence. Positions are kept
// per fingerprint for the lifetime of the Independent value and are
// committed only when a value is handed out.
//
// Over a model that is not a Sequencer (a Live model, another Independent)
// there is no shared sequence to diverge from and Independent passes calls
// through unchanged.
type Independent struct {
	inner   Model
	seq     Sequencer
	cursors cursor.Map
}

var _ Model = (*Independent)(nil)

func NewIndependent(inner Model) *Independent {
	ind := &Independent{inner: inner}
	if s, ok := inner.(Sequencer); ok {
		ind.seq = s
	}
	return ind
}

func (ind *Independent) Identity() Identity { return ind.inner.Identity() }

func (ind *Independent) Sample(prompt string, batch int) Stream {
	if ind.seq == nil {
		return ind.inner.Sample(prompt, batch)
	}
	return &independentStream{
		ind:    ind,
		prompt: prompt,
		fp:     ind.seq.Fingerprint(prompt),
		batch:  max(batch, 1),
	}
}

// Position returns how many values of prompt's sequence were consumed
// through this Independent. Always 0 in pass-through mode.
func (ind *Independent) Position(prompt string) int {
	if ind.seq == nil {
		return 0
	}
	return ind.cursors.Snapshot(ind.seq.Fingerprint(prompt))
}

// Fetch delegates to the wrapped model.
func (ind *Independent) Fetch(ctx context.Context, prompt string, n int) ([]string, error) {
	f, ok := ind.inner.(Fetcher)
	if !ok {
		return nil, errors.New("samplecache: wrapped model cannot fetch")
	}
	return f.Fetch(ctx, prompt, n)
}

type independentStream struct {
	ind    *Independent
	prompt string
	fp     string
	batch  int
}

func (s *independentStream) Next(ctx context.Context) (string, error) {
	cur := s.ind.cursors.Get(s.fp)
	cur.Lock()
	defer cur.Unlock()

	v, err := s.ind.seq.At(ctx, s.prompt, cur.Pos(), s.batch)
	if err != nil {
		return "", err
	}
	cur.Advance(1)
	return v, nil
}
