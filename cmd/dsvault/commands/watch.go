package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/systmms/dsvault/internal/config"
	dserrors "github.com/systmms/dsvault/internal/errors"
	"github.com/systmms/dsvault/internal/logging"
	"github.com/systmms/dsvault/internal/metrics"
	"github.com/systmms/dsvault/pkg/kv"
)

// Change kinds reported by kv watch.
const (
	changeNewVersion = "new_version"
	changeDeleted    = "deleted"
	changeDestroyed  = "destroyed"
	changeUndeleted  = "undeleted"
)

func newKVWatchCommand(cfg *config.Config, flags *kvFlags) *cobra.Command {
	var (
		interval    time.Duration
		metricsPort int
		count       int
	)

	cmd := &cobra.Command{
		Use:   "watch PATH",
		Short: "Report version changes of a secret",
		Long: `Poll the metadata of a secret and print a line whenever a new version
is written or a version is deleted, undeleted or destroyed.

With --metrics-port (or metrics.port in dsvault.yaml) Prometheus metrics
are served while watching.

Examples:
  dsvault kv watch app/config --interval 10s
  dsvault kv watch app/config --metrics-port 9090`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return dserrors.UserError{
					Message:    "Interval must be positive",
					Suggestion: "Use --interval 30s",
				}
			}

			client, err := flags.client(cfg)
			if err != nil {
				return err
			}

			metrics.InitMetrics()
			if metricsPort == 0 {
				metricsPort = cfg.Definition.Metrics.Port
			}
			if metricsPort > 0 {
				srvCfg := metrics.DefaultServerConfig()
				srvCfg.Port = metricsPort
				srvCfg.Path = cfg.Definition.Metrics.MetricsPath()

				server := metrics.NewServer(srvCfg, cfg.Logger)
				if err := server.Start(); err != nil {
					return err
				}
				defer func() {
					stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = server.Stop(stopCtx)
				}()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w := newWatcher(client, flags, args[0], cmd.OutOrStdout(), cfg.Logger)
			return w.run(ctx, interval, count)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "Polling interval")
	cmd.Flags().IntVar(&metricsPort, "metrics-port", 0, "Serve Prometheus metrics on this port")
	cmd.Flags().IntVar(&count, "count", 0, "Stop after this many polls (0 runs until interrupted)")

	return cmd
}

type watchEvent struct {
	Kind    string
	Version int
}

// watcher tracks the version states of one path between polls.
type watcher struct {
	client *kv.Client
	opts   []kv.Option
	mount  string
	path   string
	out    io.Writer
	logger *logging.Logger
	now    func() time.Time

	current int
	states  map[int]kv.VersionState
}

func newWatcher(client *kv.Client, flags *kvFlags, path string, out io.Writer, logger *logging.Logger) *watcher {
	mount := flags.mount
	if mount == "" {
		mount = client.DefaultMount()
	}
	return &watcher{
		client: client,
		opts:   flags.options(),
		mount:  mount,
		path:   path,
		out:    out,
		logger: logger,
		now:    time.Now,
	}
}

func (w *watcher) run(ctx context.Context, interval time.Duration, count int) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for polls := 1; ; polls++ {
		if err := w.pollAndPrint(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// a missing path may still be written; denials and bad
			// arguments will not go away by polling again
			if !dserrors.IsRetryable(err) && !errors.Is(err, kv.ErrNotFound) {
				return dserrors.VaultError("watch", err)
			}
			w.logger.Warn("Polling %s failed, retrying in %s: %v", w.path, interval, err)
		}
		if count > 0 && polls >= count {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *watcher) pollAndPrint(ctx context.Context) error {
	first := w.states == nil
	events, err := w.poll(ctx)
	if err != nil {
		return err
	}

	ts := w.now().UTC().Format(time.RFC3339)
	if first {
		_, _ = fmt.Fprintf(w.out, "%s watching %s/%s at version %d\n", ts, w.mount, w.path, w.current)
	}
	for _, e := range events {
		_, _ = fmt.Fprintf(w.out, "%s %s version %d\n", ts, e.Kind, e.Version)
	}
	return nil
}

// poll reads the metadata once and returns what changed since the previous
// poll. The first poll only records the baseline.
func (w *watcher) poll(ctx context.Context) ([]watchEvent, error) {
	result, err := w.client.ReadSecretMetadata(ctx, w.path, w.opts...)
	if err != nil {
		metrics.RecordWatchPollFailure(w.mount, w.path)
		return nil, err
	}
	secret, _ := result.Secret()
	meta := secret.Data
	now := w.now()

	first := w.states == nil
	if first {
		w.states = make(map[int]kv.VersionState)
	}

	var events []watchEvent
	if !first && meta.CurrentVersion != w.current {
		events = append(events, watchEvent{Kind: changeNewVersion, Version: meta.CurrentVersion})
	}
	for _, n := range meta.VersionNumbers() {
		state := meta.Versions[n].StateAt(now)
		prev, seen := w.states[n]
		w.states[n] = state
		if first || !seen || prev == state {
			continue
		}
		events = append(events, watchEvent{Kind: changeKind(state), Version: n})
	}
	w.current = meta.CurrentVersion

	metrics.RecordWatchVersion(w.mount, w.path, meta.CurrentVersion)
	for _, e := range events {
		metrics.RecordWatchChange(w.mount, w.path, e.Kind)
	}
	return events, nil
}

func changeKind(state kv.VersionState) string {
	switch state {
	case kv.Deleted:
		return changeDeleted
	case kv.Destroyed:
		return changeDestroyed
	default:
		return changeUndeleted
	}
}
