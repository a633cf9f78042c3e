package samplecache

import (
	"context"
	"errors"
	"strconv"
	"testing"
)

func counter(failAt int) Stream {
	i := 0
	return StreamFunc(func(context.Context) (string, error) {
		if i == failAt {
			return "", errors.New("dry")
		}
		i++
		return strconv.Itoa(i - 1), nil
	})
}

func TestTakePartialOnError(t *testing.T) {
	vals, err := Take(context.Background(), counter(2), 5)
	if err == nil {
		t.Fatal("expected error")
	}
	if !equal(vals, []string{"0", "1"}) {
		t.Fatalf("partial = %v", vals)
	}
	if vals, err := Take(context.Background(), counter(-1), 0); err != nil || len(vals) != 0 {
		t.Fatalf("Take 0 = %v, %v", vals, err)
	}
}

func TestAllStopsOnBreakAndError(t *testing.T) {
	var got []string
	for v, err := range All(context.Background(), counter(-1)) {
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, v)
		if len(got) == 3 {
			break
		}
	}
	if !equal(got, []string{"0", "1", "2"}) {
		t.Fatalf("got %v", got)
	}

	var errs int
	got = got[:0]
	for v, err := range All(context.Background(), counter(1)) {
		if err != nil {
			errs++
			continue
		}
		got = append(got, v)
	}
	if errs != 1 || !equal(got, []string{"0"}) {
		t.Fatalf("values %v, errors %d", got, errs)
	}
}
