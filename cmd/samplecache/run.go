package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/unkn0wn-root/samplecache"
)

// record is one JSONL output line of a run.
type record struct {
	RunID       string `json:"run_id"`
	Prompt      string `json:"prompt"`
	Fingerprint string `json:"fingerprint"`
	Index       int    `json:"index"`
	Sample      string `json:"sample,omitempty"`
	Error       string `json:"error,omitempty"`
}

func newRunCmd(configPath *string) *cobra.Command {
	var (
		n           int
		batch       int
		jobs        int
		outPath     string
		independent bool
		keepGoing   bool
	)

	cmd := &cobra.Command{
		Use:   "run PROMPTS_FILE",
		Short: "Sample every prompt of a file and write JSONL records",
		Long: `Reads one prompt per line (a line starting with '"' is a JSON string,
for prompts with newlines), draws -n samples per prompt and writes one JSON
record per sample. With a nested cache configured, the outer store ends up
holding exactly the samples this run read.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompts, err := readPrompts(args[0])
			if err != nil {
				return err
			}

			a, err := load(*configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if a.registry != nil {
				stop := serveMetrics(a, a.cfg.Metrics.Listen)
				defer stop()
			}

			m, err := a.model(ctx, independent)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			runID := uuid.NewString()
			a.log.Info("run started", samplecache.Fields{"run_id": runID, "prompts": len(prompts), "n": n})
			start := time.Now()
			failed, err := run(ctx, m, prompts, runOptions{
				runID: runID, n: n, batch: batch, jobs: jobs, keepGoing: keepGoing,
			}, out)
			a.log.Info("run finished", samplecache.Fields{
				"run_id": runID, "failed": failed, "took": time.Since(start).Round(time.Millisecond),
			})
			if err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d prompts failed", failed, len(prompts))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "n", "n", 1, "samples per prompt")
	cmd.Flags().IntVarP(&batch, "batch", "b", 1, "read-ahead when the cache runs dry")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 4, "prompts sampled concurrently")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&independent, "independent", false, "draw fresh samples for repeated prompts")
	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "record per-prompt errors and continue")
	return cmd
}

type runOptions struct {
	runID     string
	n, batch  int
	jobs      int
	keepGoing bool
}

// run samples every prompt and writes records in prompt order. It returns
// the number of failed prompts; without keepGoing the first failure aborts.
func run(ctx context.Context, m samplecache.Model, prompts []string, opts runOptions, w io.Writer) (int, error) {
	fingerprint := func(p string) string { return samplecache.Fingerprint(m.Identity(), p) }

	results := make([][]record, len(prompts))
	var (
		mu     sync.Mutex
		failed int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.jobs, 1))
	for i, p := range prompts {
		g.Go(func() error {
			fp := fingerprint(p)
			vals, err := samplecache.Take(gctx, m.Sample(p, opts.batch), opts.n)
			recs := make([]record, 0, len(vals)+1)
			for j, v := range vals {
				recs = append(recs, record{RunID: opts.runID, Prompt: p, Fingerprint: fp, Index: j, Sample: v})
			}
			if err != nil {
				if !opts.keepGoing {
					return fmt.Errorf("prompt %d: %w", i, err)
				}
				mu.Lock()
				failed++
				mu.Unlock()
				recs = append(recs, record{RunID: opts.runID, Prompt: p, Fingerprint: fp, Index: len(vals), Error: err.Error()})
			}
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return failed, err
	}

	enc := json.NewEncoder(w)
	for _, recs := range results {
		for _, r := range recs {
			if err := enc.Encode(r); err != nil {
				return failed, err
			}
		}
	}
	return failed, nil
}

func readPrompts(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16<<20)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if strings.HasPrefix(text, `"`) {
			var p string
			if err := json.Unmarshal([]byte(text), &p); err != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, line, err)
			}
			text = p
		}
		out = append(out, text)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("no prompts in " + path)
	}
	return out, nil
}

// serveMetrics exposes the app registry on addr until stop is called.
func serveMetrics(a *app, addr string) (stop func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server", samplecache.Fields{"addr": addr, "err": err})
		}
	}()
	a.log.Info("serving metrics", samplecache.Fields{"addr": addr})
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
