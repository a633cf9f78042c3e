package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdslog "log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/samplecache"
	"github.com/unkn0wn-root/samplecache/codec"
	"github.com/unkn0wn-root/samplecache/generator/openai"
	asynchook "github.com/unkn0wn-root/samplecache/hooks/async"
	"github.com/unkn0wn-root/samplecache/hooks/prom"
	"github.com/unkn0wn-root/samplecache/internal/config"
	logruslog "github.com/unkn0wn-root/samplecache/log/logrus"
	slogadapter "github.com/unkn0wn-root/samplecache/log/slog"
	zaplog "github.com/unkn0wn-root/samplecache/log/zap"
	"github.com/unkn0wn-root/samplecache/sloghooks"
	"github.com/unkn0wn-root/samplecache/store"
	"github.com/unkn0wn-root/samplecache/store/fs"
	"github.com/unkn0wn-root/samplecache/store/prefix"
	bigcachememo "github.com/unkn0wn-root/samplecache/store/prefix/bigcache"
	ristrettomemo "github.com/unkn0wn-root/samplecache/store/prefix/ristretto"
	redisstore "github.com/unkn0wn-root/samplecache/store/redis"
	"github.com/unkn0wn-root/samplecache/store/sqlite"
)

// app is everything built from a config, torn down by close.
type app struct {
	cfg      *config.Config
	log      samplecache.Logger
	hooks    samplecache.Hooks
	registry *prometheus.Registry
	identity samplecache.Identity

	cached  *samplecache.Cached
	closers []func() error
}

// load reads the config and builds logging and hooks. Models and stores
// are built on demand by the commands that need them.
func load(configPath string, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg}
	a.log, err = newLogger(cfg.Log, logOut)
	if err != nil {
		return nil, err
	}

	var hooks samplecache.MultiHooks
	if cfg.Log.Backend == "slog" {
		l := stdslog.New(stdslog.NewTextHandler(logOut, &stdslog.HandlerOptions{Level: stdslog.LevelDebug}))
		ah := asynchook.New(sloghooks.New(l, sloghooks.Options{FetchedEvery: 1, CopiedEvery: 10}), 1, 1024)
		a.closers = append(a.closers, func() error { ah.Close(); return nil })
		hooks = append(hooks, ah)
	}
	if cfg.Metrics.Listen != "" {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		hooks = append(hooks, prom.New(a.registry))
	}
	a.hooks = hooks

	a.identity = samplecache.Identity{
		Provider:    cfg.Provider.Name,
		Model:       cfg.Model.Name,
		Alias:       cfg.Model.Alias,
		Temperature: cfg.Model.Temperature,
		Params:      cfg.Model.Params,
	}
	if a.identity.Provider == "" {
		a.identity.Provider = cfg.Provider.BaseURL
	}
	return a, nil
}

func newLogger(lc config.LogConfig, w io.Writer) (samplecache.Logger, error) {
	switch lc.Backend {
	case "", "logrus":
		return logruslog.New(w, lc.Level), nil
	case "zap":
		return zaplog.New(w, lc.Level), nil
	case "slog":
		return slogadapter.New(w, lc.Level), nil
	default:
		return nil, fmt.Errorf("unknown log backend %q", lc.Backend)
	}
}

// generator builds the provider transport.
func (a *app) generator() (samplecache.Generator, error) {
	pc := a.cfg.Provider
	oc := openai.Config{
		BaseURL:     pc.BaseURL,
		APIKey:      pc.APIKey,
		Model:       a.cfg.Model.Name,
		Temperature: a.cfg.Model.Temperature,
		Params:      a.cfg.Model.Params,
		Timeout:     pc.Timeout,
	}
	if _, ok := openai.LookupPreset(pc.Name); ok {
		return openai.FromPreset(pc.Name, oc)
	}
	return openai.New(oc)
}

// model builds Live -> Cached(inner) -> Cached(outer), wrapped in
// Independent when independent is set.
func (a *app) model(ctx context.Context, independent bool) (samplecache.Model, error) {
	gen, err := a.generator()
	if err != nil {
		return nil, err
	}
	live, err := samplecache.NewLive(gen, a.identity, samplecache.LiveOptions{
		MaxBatch:    a.cfg.Model.MaxBatch,
		Parallelism: a.cfg.Model.Parallelism,
		Logger:      a.log,
		Hooks:       a.hooks,
	})
	if err != nil {
		return nil, err
	}

	var m samplecache.Model = live
	cc := a.cfg.Cache
	if cc.Inner != nil {
		inner, err := a.openStore(ctx, *cc.Inner, false)
		if err != nil {
			return nil, err
		}
		ic, err := samplecache.NewCached(m, samplecache.Options{
			Store:       inner,
			Replication: cc.InnerReplication,
			Logger:      a.log,
			Hooks:       a.hooks,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { return ic.Close(context.Background()) })
		m = ic
	}

	outer, err := a.openStore(ctx, cc.Store, true)
	if err != nil {
		return nil, err
	}
	c, err := samplecache.NewCached(m, samplecache.Options{
		Store:       outer,
		Replication: cc.Replication,
		Logger:      a.log,
		Hooks:       a.hooks,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { return c.Close(context.Background()) })
	a.cached = c

	if independent {
		return samplecache.NewIndependent(c), nil
	}
	return c, nil
}

// openStore opens one backend; memo puts the configured prefix memo in front.
func (a *app) openStore(ctx context.Context, sc config.StoreConfig, memo bool) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch sc.Backend {
	case "", "fs":
		st, err = fs.New(fs.Options{Dir: sc.Dir})
	case "sqlite":
		st, err = sqlite.New(sqlite.Options{Path: sc.Path, BusyTimeout: sc.Busy})
	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: sc.Addr, Password: sc.Password, DB: sc.DB})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis %s: %w", sc.Addr, err)
		}
		st, err = redisstore.New(redisstore.Config{Client: client, Namespace: sc.Namespace, CloseClient: true})
	case "memory":
		st = store.NewMemory()
	default:
		err = fmt.Errorf("unknown store backend %q", sc.Backend)
	}
	if err != nil || !memo {
		return st, err
	}
	ms, err := a.withMemo(st)
	if err != nil {
		_ = st.Close(ctx)
		return nil, err
	}
	return ms, nil
}

func (a *app) withMemo(st store.Store) (store.Store, error) {
	mc := a.cfg.Cache.Memo
	var (
		backend prefix.Backend
		err     error
	)
	sizeMB := mc.SizeMB
	if sizeMB <= 0 {
		sizeMB = 256
	}
	switch mc.Backend {
	case "", "none":
		return st, nil
	case "ristretto":
		backend, err = ristrettomemo.New(ristrettomemo.Config{
			NumCounters: int64(sizeMB) * 1000,
			MaxCost:     int64(sizeMB) << 20,
		})
	case "bigcache":
		backend, err = bigcachememo.New(bigcachememo.Config{HardMaxCacheSizeMB: sizeMB})
	default:
		err = fmt.Errorf("unknown memo backend %q", mc.Backend)
	}
	if err != nil {
		return nil, err
	}

	cd, err := codec.Sequence(mc.Codec)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	if mc.MaxBytes > 0 {
		cd = codec.LimitCodec[[]string]{Inner: cd, MaxBytes: mc.MaxBytes}
	}
	ps, err := prefix.New(st, prefix.Options{Backend: backend, Codec: cd})
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return ps, nil
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}
