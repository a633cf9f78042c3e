package sloghooks

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/samplecache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	FetchedEvery uint64
	CopiedEvery  uint64
	// Optional fingerprint shortener. Defaults to a 12-char prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	fetchedCtr atomic.Uint64
	copiedCtr  atomic.Uint64
}

var _ samplecache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(fp string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(fp)
	}
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Fetched(fp string, count int, took time.Duration) {
	if h.l == nil || !sample(h.opts.FetchedEvery, &h.fetchedCtr) {
		return
	}
	h.l.Debug("samplecache.fetched",
		"fp", h.redact(fp),
		"count", count,
		"took", took)
}

func (h *Hooks) FetchFailed(fp string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("samplecache.fetch_failed",
		"fp", h.redact(fp),
		"err", err)
}

func (h *Hooks) ReplicationMiss(fp string, index int) {
	if h.l == nil {
		return
	}
	h.l.Warn("samplecache.replication_miss",
		"fp", h.redact(fp),
		"index", index)
}

func (h *Hooks) SliceCopied(fp string, from, count int) {
	if h.l == nil || !sample(h.opts.CopiedEvery, &h.copiedCtr) {
		return
	}
	h.l.Debug("samplecache.slice_copied",
		"fp", h.redact(fp),
		"from", from,
		"count", count)
}

func (h *Hooks) StoreError(fp string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("samplecache.store_error",
		"fp", h.redact(fp),
		"err", err)
}
