package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/hedisam/spscring/internal/custompromauto"
	"github.com/hedisam/spscring/internal/retry"
	"github.com/hedisam/spscring/internal/ringbuffer"
	"github.com/hedisam/spscring/internal/transfer"
)

const (
	variantBlocking = "blocking"
	variantLockFree = "lockfree"
)

type Options struct {
	Variant       string
	Capacity      int
	Items         int
	ProducerDelay time.Duration
	ConsumerDelay time.Duration
	Timeout       time.Duration
	MetricsAddr   string
	Verbose       bool
	Retry         retry.Config
}

func main() {
	logger := logrus.New()

	err := newApp(logger).Run(os.Args)
	if err != nil {
		logger.WithError(err).Fatal("Failed to run the command")
	}
}

func newApp(logger *logrus.Logger) *cli.App {
	app := cli.NewApp()
	app.Name = "spscring"
	app.Usage = "Hand items from one producer goroutine to one consumer goroutine through a bounded ring buffer"
	app.Flags = []cli.Flag{
		&cli.IntFlag{
			Name:    "capacity",
			Value:   5,
			Usage:   "Buffer capacity. The lockfree buffer holds one item less than its capacity",
			EnvVars: []string{"SPSCRING_CAPACITY"},
		},
		&cli.IntFlag{
			Name:    "items",
			Value:   10,
			Usage:   "Number of items to produce and consume",
			EnvVars: []string{"SPSCRING_ITEMS"},
		},
		&cli.DurationFlag{
			Name:    "producer-delay",
			Value:   10 * time.Millisecond,
			Usage:   "Pause after each produced item to simulate work",
			EnvVars: []string{"SPSCRING_PRODUCER_DELAY"},
		},
		&cli.DurationFlag{
			Name:    "consumer-delay",
			Value:   0,
			Usage:   "Pause after each consumed item to simulate work",
			EnvVars: []string{"SPSCRING_CONSUMER_DELAY"},
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Value:   0,
			Usage:   "Deadline for the whole transfer. 0: no deadline",
			EnvVars: []string{"SPSCRING_TIMEOUT"},
		},
		&cli.StringFlag{
			Name:    "metrics-addr",
			Value:   "",
			Usage:   "Serve /metrics on this addr and keep serving after the transfer until interrupted",
			EnvVars: []string{"SPSCRING_METRICS_ADDR"},
		},
		&cli.BoolFlag{
			Name:    "v",
			Value:   false,
			Usage:   "Verbose output",
			EnvVars: []string{"SPSCRING_VERBOSE"},
		},
	}
	app.Commands = cli.Commands{
		&cli.Command{
			Name:  variantBlocking,
			Usage: "Use the mutex and condition variable buffer; both sides sleep while they cannot progress",
			Action: func(c *cli.Context) error {
				return run(c, logger, variantBlocking)
			},
		},
		&cli.Command{
			Name:  variantLockFree,
			Usage: "Use the atomic cursor buffer; both sides retry failed attempts with the chosen strategy",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "retry",
					Value:   string(retry.Yield),
					Usage:   "What to do after a failed attempt: spin, yield or backoff",
					EnvVars: []string{"SPSCRING_RETRY"},
				},
				&cli.Uint64Flag{
					Name:    "max-attempts",
					Value:   0,
					Usage:   "Attempts per item before giving up. 0: unbounded",
					EnvVars: []string{"SPSCRING_MAX_ATTEMPTS"},
				},
				&cli.DurationFlag{
					Name:    "initial-interval",
					Value:   100 * time.Microsecond,
					Usage:   "First backoff interval, only used with --retry=backoff",
					EnvVars: []string{"SPSCRING_INITIAL_INTERVAL"},
				},
				&cli.DurationFlag{
					Name:    "max-interval",
					Value:   10 * time.Millisecond,
					Usage:   "Largest backoff interval, only used with --retry=backoff",
					EnvVars: []string{"SPSCRING_MAX_INTERVAL"},
				},
			},
			Action: func(c *cli.Context) error {
				return run(c, logger, variantLockFree)
			},
		},
	}

	return app
}

func optionsFromContext(c *cli.Context, variant string) Options {
	opts := Options{
		Variant:       variant,
		Capacity:      c.Int("capacity"),
		Items:         c.Int("items"),
		ProducerDelay: c.Duration("producer-delay"),
		ConsumerDelay: c.Duration("consumer-delay"),
		Timeout:       c.Duration("timeout"),
		MetricsAddr:   c.String("metrics-addr"),
		Verbose:       c.Bool("v"),
	}
	if variant == variantLockFree {
		opts.Retry = retry.Config{
			Strategy:        retry.Strategy(c.String("retry")),
			MaxAttempts:     c.Uint64("max-attempts"),
			InitialInterval: c.Duration("initial-interval"),
			MaxInterval:     c.Duration("max-interval"),
		}
	}

	return opts
}

func run(c *cli.Context, logger *logrus.Logger, variant string) error {
	opts := optionsFromContext(c, variant)
	err := validateOptions(opts)
	if err != nil {
		_ = cli.ShowAppHelp(c)
		return fmt.Errorf("invalid options: %w", err)
	}

	if opts.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var metricsServed chan struct{}
	if opts.MetricsAddr != "" {
		// use a custom prom registry to avoid recording the default go runtime metrics
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(custompromauto.Registry(), promhttp.HandlerOpts{}))

		metricsServed = make(chan struct{})
		go func() {
			defer close(metricsServed)
			mustListenAndServe(ctx, logger, opts.MetricsAddr, mux)
		}()
	}

	q, err := newQueue(logger, opts)
	if err != nil {
		return fmt.Errorf("create %s buffer: %w", opts.Variant, err)
	}

	runCtx := ctx
	if opts.Timeout > 0 {
		var cancelRun context.CancelFunc
		runCtx, cancelRun = context.WithTimeout(ctx, opts.Timeout)
		defer cancelRun()
	}

	res, err := transfer.New(logger, clockwork.NewRealClock()).Run(runCtx, q, transfer.Options{
		Variant:       opts.Variant,
		Items:         opts.Items,
		ProducerDelay: opts.ProducerDelay,
		ConsumerDelay: opts.ConsumerDelay,
	})
	if err != nil {
		return fmt.Errorf("transfer items through %s buffer: %w", opts.Variant, err)
	}

	logger.WithFields(logrus.Fields{
		"variant":  opts.Variant,
		"capacity": opts.Capacity,
		"items":    len(res.Consumed),
		"elapsed":  res.Elapsed,
	}).Info("Transfer finished")

	if metricsServed != nil {
		logger.Info("Serving metrics until interrupted...")
		<-metricsServed
	}

	return nil
}

func newQueue(logger *logrus.Logger, opts Options) (transfer.Queue[int], error) {
	switch opts.Variant {
	case variantBlocking:
		b, err := ringbuffer.NewBlocking[int](opts.Capacity)
		if err != nil {
			return nil, err
		}
		return b, nil
	case variantLockFree:
		lf, err := ringbuffer.NewLockFree[int](opts.Capacity)
		if err != nil {
			return nil, err
		}
		logger.WithFields(logrus.Fields{
			"capacity": opts.Capacity,
			"usable":   lf.Cap(),
		}).Debug("Lock-free buffer keeps one slot free to tell full from empty")
		return retry.NewQueue[int](lf, opts.Retry), nil
	default:
		return nil, fmt.Errorf("unknown buffer variant %q", opts.Variant)
	}
}

func mustListenAndServe(ctx context.Context, logger *logrus.Logger, addr string, handler http.Handler) {
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		logger.WithField("addr", addr).Info("Serving metrics server...")
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Metrics server failed with error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	logger.Info("Shutting down metrics server...")
	err := srv.Shutdown(shutdownCtx)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.WithError(err).Error("Failed to shutdown metrics server gracefully")
	}
}

func validateOptions(opts Options) error {
	var errs []error
	if opts.Capacity < 1 {
		errs = append(errs, fmt.Errorf("--capacity cannot be less than 1, got %d", opts.Capacity))
	}
	if opts.Items < 0 {
		errs = append(errs, fmt.Errorf("--items cannot be negative, got %d", opts.Items))
	}
	if opts.ProducerDelay < 0 || opts.ConsumerDelay < 0 {
		errs = append(errs, errors.New("--producer-delay and --consumer-delay cannot be negative"))
	}
	if opts.Timeout < 0 {
		errs = append(errs, errors.New("--timeout cannot be negative"))
	}
	if opts.Variant == variantLockFree {
		err := opts.Retry.Validate()
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid retry options: %w", err))
		}
	}

	return errors.Join(errs...)
}
