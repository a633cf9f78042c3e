package store

import (
	"context"
	"fmt"
)

// CopyFunc is called after values were copied from the inner into the outer store.
type CopyFunc func(fp string, from, count int)

// Nested reads through an outer store into an inner one. Any value served
// from inner is first copied into outer (together with every index before it
// that outer lacks), so outer converges to exactly the fingerprints and
// index ranges that were read. This is what makes slicing a large cache into
// a small, self-contained one possible.
//
// Writes go to outer only; inner is never mutated through Nested.
type Nested struct {
	outer  Store
	inner  Store
	onCopy CopyFunc
}

var (
	_ Store  = (*Nested)(nil)
	_ Loader = (*Nested)(nil)
	_ Lister = (*Nested)(nil)
)

// NewNested composes outer over inner. onCopy may be nil.
func NewNested(outer, inner Store, onCopy CopyFunc) *Nested {
	return &Nested{outer: outer, inner: inner, onCopy: onCopy}
}

// Len reports the outer length. Inner values become visible through Get.
func (n *Nested) Len(ctx context.Context, fp string) (int, error) {
	return n.outer.Len(ctx, fp)
}

func (n *Nested) Get(ctx context.Context, fp string, index int) (string, bool, error) {
	for {
		v, ok, err := n.outer.Get(ctx, fp, index)
		if err != nil || ok {
			return v, ok, err
		}
		iv, ok, err := n.inner.Get(ctx, fp, index)
		if err != nil || !ok {
			return "", false, err
		}

		have, err := n.outer.Len(ctx, fp)
		if err != nil {
			return "", false, err
		}
		if index < have {
			// filled concurrently; read it back from outer
			continue
		}

		vals := make([]string, 0, index-have+1)
		for i := have; i < index; i++ {
			x, ok, err := n.inner.Get(ctx, fp, i)
			if err != nil {
				return "", false, err
			}
			if !ok {
				return "", false, &CorruptError{Fingerprint: fp, Err: fmt.Errorf("inner has index %d but not %d", index, i)}
			}
			vals = append(vals, x)
		}
		vals = append(vals, iv)

		ok, err = n.outer.AppendAt(ctx, fp, have, vals)
		if err != nil {
			return "", false, err
		}
		if !ok {
			// outer moved under us; retry from the top
			continue
		}
		if n.onCopy != nil {
			n.onCopy(fp, have, len(vals))
		}
		return iv, true, nil
	}
}

func (n *Nested) Append(ctx context.Context, fp string, values []string) (int, error) {
	return n.outer.Append(ctx, fp, values)
}

func (n *Nested) AppendAt(ctx context.Context, fp string, at int, values []string) (bool, error) {
	return n.outer.AppendAt(ctx, fp, at, values)
}

// Load returns what outer holds for fp.
func (n *Nested) Load(ctx context.Context, fp string) ([]string, error) {
	return Load(ctx, n.outer, fp)
}

// Keys lists outer fingerprints.
func (n *Nested) Keys(ctx context.Context) ([]string, error) {
	l, ok := n.outer.(Lister)
	if !ok {
		return nil, ErrUnsupported
	}
	return l.Keys(ctx)
}

// Close closes outer only. The inner store belongs to whoever opened it.
func (n *Nested) Close(ctx context.Context) error {
	return n.outer.Close(ctx)
}
