package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/billie-coop/typeahead/internal/config"
	"github.com/billie-coop/typeahead/internal/logging"
	"github.com/billie-coop/typeahead/internal/metrics"
	"github.com/billie-coop/typeahead/internal/predict"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const idlePoll = 20 * time.Millisecond

type watchOptions struct {
	json        bool
	linger      time.Duration
	metricsAddr string
}

func newWatchCmd(flags *globalFlags) *cobra.Command {
	wo := &watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Read field edits from stdin and print every state change",
		Long: `watch reads one edit per line from stdin. A line "name=value" sets the
named field; any other line replaces the primary field. Every change to
the displayed state is printed. watch exits once stdin is closed and no
query is pending or in flight.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := flags.load(cmd)
			if err != nil {
				return err
			}
			logger := logging.New(os.Stderr, cfg.Debug)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cfg, newClient(cfg, logger), cmd.InOrStdin(), cmd.OutOrStdout(), *wo, logger)
		},
	}
	cmd.Flags().BoolVar(&wo.json, "json", false, "print states as JSON lines")
	cmd.Flags().DurationVar(&wo.linger, "linger", 0, "keep running this long after the last query settles")
	cmd.Flags().StringVar(&wo.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

// watcher drives a Predictor from line-oriented input on its own event loop.
type watcher struct {
	loop      *predict.EventLoop
	fieldSet  *predict.FieldSet
	predictor *predict.Predictor
	primary   string
	known     map[string]bool
	out       io.Writer
	json      bool
	logger    *slog.Logger
}

func runWatch(ctx context.Context, cfg *config.Config, transport predict.Transport, in io.Reader, out io.Writer, wo watchOptions, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := &watcher{
		loop:     predict.NewEventLoop(64),
		fieldSet: predict.NewFieldSet(),
		primary:  cfg.PrimaryField(),
		known:    make(map[string]bool, len(cfg.Fields)),
		out:      out,
		json:     wo.json,
		logger:   logger,
	}
	for _, f := range cfg.Fields {
		w.known[f.Name] = true
		w.fieldSet.Set(f.Name, f.Default)
	}

	opts := predictOptions(cfg, logger)
	var registry *prometheus.Registry
	if wo.metricsAddr != "" {
		registry = prometheus.NewRegistry()
		opts = append(opts, predict.WithHook(metrics.NewRecorder(registry).Observe))
	}
	w.predictor = predict.New(transport, w.fieldSet, w.loop, opts...)
	defer w.predictor.Close()

	if err := w.print(w.predictor.State()); err != nil {
		return err
	}
	w.predictor.Subscribe(func(s predict.DisplayState) {
		if err := w.print(s); err != nil {
			logger.Warn("failed to print state", "error", err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.loop.Run(gctx)
	})
	g.Go(func() error {
		// Scan can't be interrupted, so the reader is left behind on cancel.
		readErr := make(chan error, 1)
		go func() { readErr <- w.read(gctx, in) }()
		select {
		case err := <-readErr:
			if err != nil {
				return err
			}
		case <-gctx.Done():
			return gctx.Err()
		}
		if err := w.waitIdle(gctx, wo.linger); err != nil {
			return err
		}
		cancel()
		return nil
	})
	if registry != nil {
		serveMetrics(gctx, g, wo.metricsAddr, registry, logger)
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// read posts every input line to the loop as a field edit.
func (w *watcher) read(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		name, value := parseEdit(scanner.Text(), w.primary, w.known)
		w.loop.Post(func() {
			if w.fieldSet.Set(name, value) {
				w.predictor.NotifyChange()
			}
		})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return nil
}

// waitIdle returns once nothing has been pending or in flight for linger.
func (w *watcher) waitIdle(ctx context.Context, linger time.Duration) error {
	var idleSince time.Time
	ticker := time.NewTicker(idlePoll)
	defer ticker.Stop()

	for {
		idle, err := w.idle(ctx)
		if err != nil {
			return err
		}
		switch {
		case !idle:
			idleSince = time.Time{}
		case idleSince.IsZero():
			idleSince = time.Now()
			if linger <= 0 {
				return nil
			}
		case time.Since(idleSince) >= linger:
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *watcher) idle(ctx context.Context) (bool, error) {
	result := make(chan bool, 1)
	w.loop.Post(func() {
		result <- !w.predictor.Pending() && w.predictor.InFlight() == 0
	})
	select {
	case idle := <-result:
		return idle, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (w *watcher) print(s predict.DisplayState) error {
	if w.json {
		return json.NewEncoder(w.out).Encode(s)
	}
	_, err := fmt.Fprintln(w.out, formatState(s))
	return err
}

// formatState renders one state as a single line.
func formatState(s predict.DisplayState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %-8s", s.Sequence, s.Phase)
	if s.StatusText != "" {
		fmt.Fprintf(&b, " %s", s.StatusText)
	}
	if len(s.Predictions) > 0 {
		labels := make([]string, len(s.Predictions))
		for i, p := range s.Predictions {
			labels[i] = p.String()
		}
		fmt.Fprintf(&b, " [%s]", strings.Join(labels, " | "))
	}
	if s.AuxiliaryID != "" {
		fmt.Fprintf(&b, " aux=%s", s.AuxiliaryID)
	}
	if s.Warning != "" {
		fmt.Fprintf(&b, " warning=%q", s.Warning)
	}
	return b.String()
}

// parseEdit splits "name=value" for known field names. Anything else is
// the new value of the primary field.
func parseEdit(line, primary string, known map[string]bool) (string, string) {
	if name, value, ok := strings.Cut(line, "="); ok && known[strings.TrimSpace(name)] {
		return strings.TrimSpace(name), value
	}
	return primary, line
}

func serveMetrics(ctx context.Context, g *errgroup.Group, addr string, registry *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
