package samplecache

const (
	defaultMaxBatch    = 1
	defaultParallelism = 4
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// readAhead rounds a shortfall up to whole batches.
func readAhead(shortfall, batch int) int {
	batch = max(batch, 1)
	shortfall = max(shortfall, 1)
	return (shortfall + batch - 1) / batch * batch
}
