package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/samvad-hq/samvad-orbit-reporter/internal/config"
	"github.com/samvad-hq/samvad-orbit-reporter/internal/logger"
	"github.com/samvad-hq/samvad-orbit-reporter/internal/metrics"
	"github.com/samvad-hq/samvad-orbit-reporter/internal/reporter"
	"github.com/samvad-hq/samvad-orbit-reporter/internal/storage"
	"github.com/samvad-hq/samvad-orbit-reporter/pkg/fetcher"
	"github.com/samvad-hq/samvad-orbit-reporter/pkg/publishers"
)

// Runner wires the reporter to its output sink, publishers and snapshot store, and runs
// either a single pass or a polling loop.
type Runner struct {
	cfg      *config.Config
	reporter *reporter.Reporter
	fanout   *publishers.Fanout
	store    storage.Store
	log      logger.Logger
	out      io.Writer
	errOut   io.Writer
}

// NewRunner builds a runner from config. out receives reports, errOut receives per-report failures.
func NewRunner(ctx context.Context, cfg *config.Config, log logger.Logger, out, errOut io.Writer) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}

	f := fetcher.New(nil, fetcher.Options{
		Timeout:      cfg.FetchTimeout,
		MaxRetries:   cfg.FetchMaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Headers:      requestHeaders(cfg),
		Logger:       log,
	})
	rep := reporter.New(f, reporter.Endpoints{
		AstronautsURL: cfg.AstrosURL,
		IssURL:        cfg.IssURL,
	}, reporter.WithZone(cfg.Location), reporter.WithLogger(log))

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		SnapshotTTL:     cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("init storage: %w", err), fanout.Close())
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"snapshot_ttl_seconds":     int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	return &Runner{
		cfg:      cfg,
		reporter: rep,
		fanout:   fanout,
		store:    store,
		log:      log,
		out:      out,
		errOut:   errOut,
	}, nil
}

func requestHeaders(cfg *config.Config) map[string]string {
	headers := map[string]string{"Accept": "application/json"}
	if cfg.UserAgent != "" {
		headers["User-Agent"] = cfg.UserAgent
	}
	return headers
}

func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	if cfg.PublishersFile == "" {
		return publishers.NewFanout(nil), nil
	}

	cfgs, err := publishers.LoadConfigs(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers: %w", err)
	}
	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), cfgs, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(cfgs))
	for _, c := range cfgs {
		summaries = append(summaries, map[string]string{"id": c.ID, "type": c.Type})
	}
	log.InfoObj("publishers loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubs), nil
}

// Reporter exposes the underlying reporter for single-endpoint commands.
func (r *Runner) Reporter() *reporter.Reporter { return r.reporter }

// Run executes one pass, or polls until ctx is cancelled when an interval is configured.
// A single pass returns the joined report errors; the loop only logs them.
func (r *Runner) Run(ctx context.Context) error {
	if r == nil || r.reporter == nil {
		return fmt.Errorf("runner is not initialized")
	}

	if r.cfg.PollInterval <= 0 {
		return r.runOnce(ctx).Err()
	}

	stopMetrics := r.serveMetrics()
	defer stopMetrics()

	r.log.InfoObj("poll loop starting", "poll_state", map[string]any{
		"poll_interval":    r.cfg.PollInterval.String(),
		"publishers_count": r.fanout.Size(),
	})

	r.runOnce(ctx)

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.InfoObj("poll loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) reporter.Results {
	start := time.Now()
	res := r.reporter.RunAll(ctx)

	if err := r.write(res); err != nil {
		r.log.ErrorObj("write report failed", "error", err.Error())
	}
	r.publish(ctx, res)

	r.log.InfoObj("report pass completed", "pass_meta", map[string]any{
		"elapsed_ms":    time.Since(start).Milliseconds(),
		"astronauts_ok": res.Astronauts.Err == nil,
		"iss_ok":        res.ISS.Err == nil,
	})
	return res
}

func (r *Runner) write(res reporter.Results) error {
	if r.cfg.OutputFormat == config.FormatJSON {
		if err := reporter.WriteJSON(r.out, res, r.cfg.Location); err != nil {
			return err
		}
		return nil
	}
	return reporter.WriteText(r.out, r.errOut, res)
}

// publish hands each successful report to the fanout unless the same payload was already
// delivered within the store's TTL. Failures are logged and never affect the reports.
func (r *Runner) publish(ctx context.Context, res reporter.Results) {
	if r.fanout.Size() == 0 {
		return
	}

	if res.Astronauts.Err == nil {
		r.publishOne(ctx, string(reporter.EndpointAstronauts), res.Astronauts.Text, res.Astronauts.Roster)
	}
	if res.ISS.Err == nil {
		r.publishOne(ctx, string(reporter.EndpointISS), res.ISS.Text, res.ISS.Report)
	}
}

func (r *Runner) publishOne(ctx context.Context, endpoint, text string, payload any) {
	evt, err := publishers.NewEvent(endpoint, text, payload)
	if err != nil {
		r.log.ErrorObj("build event failed", "error", err.Error())
		return
	}

	seen, err := r.store.SeenSnapshot(evt.DedupKey())
	if err != nil {
		r.log.WarnObj("snapshot lookup failed", "snapshot_error", map[string]any{
			"endpoint": endpoint,
			"error":    err.Error(),
		})
	}
	if seen {
		metrics.PublishedEvents.WithLabelValues("skipped").Inc()
		r.log.DebugObj("snapshot unchanged, skipping publish", "endpoint", endpoint)
		return
	}

	delivered, err := r.fanout.Publish(ctx, evt)
	if err != nil {
		metrics.PublishedEvents.WithLabelValues("failed").Inc()
		r.log.ErrorObj("publish failed", "publish_error", map[string]any{
			"endpoint":  endpoint,
			"event_id":  evt.ID,
			"delivered": delivered,
			"error":     err.Error(),
		})
	}
	if delivered == 0 {
		return
	}
	metrics.PublishedEvents.WithLabelValues("published").Inc()
	if err := r.store.MarkSnapshot(evt.DedupKey()); err != nil {
		r.log.WarnObj("snapshot mark failed", "snapshot_error", map[string]any{
			"endpoint": endpoint,
			"error":    err.Error(),
		})
	}
}

// serveMetrics starts the Prometheus endpoint when configured and returns its stop func.
func (r *Runner) serveMetrics() func() {
	if r.cfg.MetricsAddr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: r.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.log.ErrorObj("metrics server failed", "error", err.Error())
		}
	}()
	r.log.InfoObj("metrics server listening", "metrics_addr", r.cfg.MetricsAddr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// Close releases publisher clients and the snapshot store.
func (r *Runner) Close() error {
	var errs []error
	if err := r.fanout.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publishers: %w", err))
	}
	if err := r.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close storage: %w", err))
	}
	return errors.Join(errs...)
}
