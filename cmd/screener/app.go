package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"SignalEngine/internal/collector"
	"SignalEngine/internal/config"
	"SignalEngine/internal/metrics"
	"SignalEngine/internal/model"
	"SignalEngine/internal/notifier"
	"SignalEngine/internal/recorder"
	"SignalEngine/internal/report"
	"SignalEngine/internal/scheduler"
	"SignalEngine/internal/screener"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg      *config.Config
	metrics  *metrics.Metrics
	recorder recorder.Recorder
	telegram *notifier.TelegramNotifier // nil when Telegram is not configured
	sched    *scheduler.Scheduler
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath
	if v := os.Getenv("CONFIG_PATH"); v != "" && !cmd.Flags().Changed("config") {
		path = v
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	log.Printf("[INFO] config loaded from %s: %d tasks", path, len(cfg.Tasks))
	return cfg, nil
}

func openRecorder(cfg *config.Config) recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
	if err != nil {
		log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
		return recorder.NewNoopRecorder()
	}
	return sr
}

func setup(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	var fetcher collector.Fetcher
	if useMock {
		fetcher = &collector.MockFetcher{Price: 1000}
	} else {
		fetcher = collector.NewYahooFetcher(cfg.Proxy)
	}
	log.Printf("[INFO] data source: %s", fetcher.Name())

	a := &app{cfg: cfg, metrics: metrics.New(), recorder: openRecorder(cfg)}
	engine := screener.NewEngine(cfg,
		collector.NewCollector(fetcher, cfg.DataSource.HistoryDays),
		collector.NewUniverseLoader(cfg),
		collector.NewDeliveryFetcher(cfg.DataSource.DeliveryURL, cfg.DataSource.DeliveryLookbackDays, cfg.Proxy),
		a.metrics)

	var n scheduler.Notifier
	if cfg.TelegramEnabled() {
		a.telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		n = a.telegram
	} else {
		log.Println("[INFO] Telegram not configured, notifications disabled")
	}
	exp := report.NewExporter(cfg.FilePaths.OutputDir, cfg.Export.ExcelFormat)
	a.sched = scheduler.NewScheduler(ctx, cfg, engine, a.recorder, exp, n)
	return a, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runOnce(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.recorder.Close()

	results, err := a.sched.RunTasks(ctx, runTasks)
	for _, res := range results {
		printReport(cmd.OutOrStdout(), &res.Run, res.Report)
	}
	if errors.Is(err, context.Canceled) {
		log.Println("[WARN] interrupted, partial results saved")
		return nil
	}
	return err
}

func serve(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.recorder.Close()

	if err := a.sched.Register(a.cfg.Schedule.AnalysisCron); err != nil {
		return err
	}
	a.sched.Start()
	defer a.sched.Stop()
	log.Printf("[INFO] analysis scheduled: %s", a.cfg.Schedule.AnalysisCron)

	if a.telegram != nil {
		go a.telegram.StartPolling(ctx, a.sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	var srv *http.Server
	if a.cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", a.metrics.Handler())
		srv = &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("[ERROR] metrics server: %v", err)
			}
		}()
		log.Printf("[INFO] metrics listening on %s", a.cfg.Metrics.Addr)
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing analysis now")
		go a.sched.RunNow()
	}

	log.Println("[INFO] screener is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	log.Println("[INFO] shutdown signal received, stopping...")

	if srv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] metrics server shutdown: %v", err)
		}
	}
	return nil
}

func showReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	task, ok := cfg.TaskByName(args[0])
	if !ok {
		task, ok = cfg.TaskByName(strings.ToUpper(args[0]))
	}
	if !ok {
		return fmt.Errorf("unknown task %q", args[0])
	}
	rec := openRecorder(cfg)
	defer rec.Close()

	run, rep, err := rec.LatestReport(task.Name)
	if err != nil {
		return fmt.Errorf("latest %s report: %w", task.Name, err)
	}
	printReport(cmd.OutOrStdout(), run, rep)
	return nil
}

// printReport writes a run header and the report's tabular form.
func printReport(w io.Writer, run *recorder.RunSummary, rep *model.WideReport) {
	fmt.Fprintf(w, "\n=== %s (%s) finished %s: %d evaluated, %d skipped, %d all met [%s]\n",
		run.Task, run.RuleSet, run.FinishedAt.Format(report.TimestampLayout),
		run.Evaluated, run.Skipped, run.AllMet, run.Status)
	if rep.Empty() {
		fmt.Fprintln(w, "no stocks evaluated")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(report.Header(rep), "\t"))
	for _, row := range report.Table(rep) {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}
