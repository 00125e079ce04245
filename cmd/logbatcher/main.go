package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"logbatcher/internal/config"
	"logbatcher/internal/diagnostics"
	"logbatcher/internal/engine"
	"logbatcher/internal/metrics"
	"logbatcher/internal/platform/logger"
	"logbatcher/internal/retention"
	"logbatcher/internal/scheduler"
	"logbatcher/internal/version"
)

// Exit codes used by the CLI.
const (
	exitOK         = 0
	exitValidation = 2
	exitTransient  = 3
	exitFatal      = 4
)

func main() {
	showVersion := flag.Bool("version", false, "Print version and exit")
	diagFormat := flag.String("diag-format", "text", "Diagnostics output format (text|json)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("logbatcher %s\n", version.Full())
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: logbatcher <init|run-hourly|process-hour|create-jobs|retry|retention|status> [args]")
		os.Exit(exitValidation)
	}

	cfg := config.Load()
	if errs, warnings := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "config error: %s\n", e)
		}
		os.Exit(exitValidation)
	} else {
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "config warning: %s\n", w)
		}
	}

	logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, rest := args[0], args[1:]

	if cmd == "init" {
		if ok, errs := engine.ValidateConfig(cfg); !ok {
			for _, e := range errs {
				fmt.Fprintf(os.Stderr, "config error: %s\n", e)
			}
			os.Exit(exitValidation)
		}
		fmt.Println("configuration valid")
		return
	}

	eng, err := engine.New(ctx, cfg, logger.Zap())
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(exitFatal)
	}
	defer func() {
		sdCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = eng.Shutdown(sdCtx)
	}()

	switch cmd {
	case "run-hourly":
		res, err := eng.RunHourlyJob(ctx)
		exitWith(err)
		printSlotResult(res)

	case "process-hour":
		if len(rest) != 2 {
			fmt.Fprintln(os.Stderr, "usage: logbatcher process-hour <date> <hour>")
			os.Exit(exitValidation)
		}
		hour, parseErr := strconv.Atoi(rest[1])
		if parseErr != nil {
			fmt.Fprintf(os.Stderr, "invalid hour %q: %v\n", rest[1], parseErr)
			os.Exit(exitValidation)
		}
		res, err := eng.ProcessSpecificHour(ctx, rest[0], hour)
		exitWith(err)
		printSlotResult(res)

	case "create-jobs":
		date := ""
		if len(rest) > 0 {
			date = rest[0]
		}
		job, err := eng.CreateDailyJobs(ctx, date)
		exitWith(err)
		fmt.Printf("job %s status=%s\n", job.Date, job.Status)

	case "retry":
		results, err := eng.RetryFailedJobs(ctx)
		exitWith(err)
		for _, res := range results {
			printSlotResult(res)
		}
		fmt.Printf("retried %d slot(s)\n", len(results))

	case "retention":
		runRetentionCommand(ctx, eng, rest)

	case "status":
		if len(rest) != 1 {
			fmt.Fprintln(os.Stderr, "usage: logbatcher status <date>")
			os.Exit(exitValidation)
		}
		runStatusCommand(ctx, eng, cfg, rest[0], *diagFormat)

	case "serve":
		runServeCommand(ctx, eng, cfg)

	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", cmd)
		os.Exit(exitValidation)
	}
}

func runRetentionCommand(ctx context.Context, eng *engine.Engine, rest []string) {
	if len(rest) == 0 {
		fmt.Fprintln(os.Stderr, "usage: logbatcher retention <stats|run|dry-run|setup-lifecycle>")
		os.Exit(exitValidation)
	}

	switch rest[0] {
	case "stats":
		stats, err := eng.RetentionStats(ctx)
		exitWith(err)
		printRetentionStats(stats)

	case "run":
		counts, err := eng.RetentionCleanup(ctx, retention.CleanupOptions{DB: true, Storage: true, DryRun: false})
		exitWith(err)
		printCleanupCounts(counts)

	case "dry-run":
		counts, err := eng.RetentionCleanup(ctx, retention.CleanupOptions{DB: true, Storage: true, DryRun: true})
		exitWith(err)
		printCleanupCounts(counts)

	case "setup-lifecycle":
		err := eng.RetentionSetupLifecycle(ctx)
		exitWith(err)
		fmt.Println("lifecycle policy applied")

	default:
		fmt.Fprintf(os.Stderr, "unknown retention subcommand %q\n", rest[0])
		os.Exit(exitValidation)
	}
}

// storePinger and archivePinger adapt engine.Engine's differently-named
// health-check methods to the Ping(ctx) error shape diagnostics expects,
// since the engine exposes PingStore/PingArchive (two distinct checks)
// rather than a single method named Ping.
type storePinger struct{ eng *engine.Engine }

func (p storePinger) Ping(ctx context.Context) error { return p.eng.PingStore(ctx) }

type archivePinger struct{ eng *engine.Engine }

func (p archivePinger) Ping(ctx context.Context) error { return p.eng.PingArchive(ctx) }

func runStatusCommand(ctx context.Context, eng *engine.Engine, cfg *config.Config, date, format string) {
	info := diagnostics.Collect(ctx, cfg, storePinger{eng}, archivePinger{eng})
	if err := diagnostics.Print(info, format); err != nil {
		fmt.Fprintf(os.Stderr, "error printing diagnostics: %v\n", err)
		os.Exit(exitFatal)
	}

	job, err := eng.GetJobStatus(ctx, date)
	exitWith(err)
	if job == nil {
		fmt.Printf("\nno job found for %s\n", date)
		return
	}
	fmt.Printf("\njob %s status=%s\n", job.Date, job.Status)
	for hour, slot := range job.Hours {
		if slot.Status == "pending" && slot.Retries == 0 && len(slot.Logs) == 0 {
			continue
		}
		fmt.Printf("  %s: status=%s retries=%d file=%s\n", slot.HourRange, slot.Status, slot.Retries, slot.FilePath)
		_ = hour
	}
}

func printSlotResult(res engine.SlotResult) {
	noop := ""
	if res.NoOp {
		noop = " (no-op, already succeeded)"
	}
	fmt.Printf("%s %s: status=%s file=%s%s\n", res.Date, res.HourRange, res.Status, res.FilePath, noop)
}

func printRetentionStats(stats retention.Stats) {
	fmt.Printf("api-records: total=%d over-age=%d\n", stats.DB.APILogs.Total, stats.DB.APILogs.OverAge)
	fmt.Printf("jobs:        total=%d over-age=%d\n", stats.DB.Jobs.Total, stats.DB.Jobs.OverAge)
	fmt.Printf("logs:        total=%d over-age=%d\n", stats.DB.Logs.Total, stats.DB.Logs.OverAge)
	fmt.Printf("archive:     files=%d bytes=%d over-age-files=%d over-age-bytes=%d\n",
		stats.Storage.Files, stats.Storage.Size, stats.Storage.OverAgeFiles, stats.Storage.OverAgeSize)
}

func printCleanupCounts(counts retention.CleanupCounts) {
	fmt.Printf("deleted: api-records=%d jobs=%d logs=%d archive-keys=%d\n",
		counts.APILogsDeleted, counts.JobsDeleted, counts.LogsDeleted, counts.ArchiveKeysDeleted)
}

// exitWith classifies err by engine error kind and exits the process when err
// is non-nil; validation errors exit 2, retriable kinds exit 3
// (transient), everything else exits 4 (fatal). A nil err is a no-op so callers can chain straight into
// printing the successful result.
func exitWith(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	if engErr, ok := err.(*engine.Error); ok {
		if engErr.Kind == engine.KindValidation {
			os.Exit(exitValidation)
		}
		if engErr.Kind.Retriable() {
			os.Exit(exitTransient)
		}
		os.Exit(exitFatal)
	}
	os.Exit(exitFatal)
}

// runServeCommand starts the cooperative cron loop (daily + hourly
// triggers, retry sweep) and blocks until an interrupt/TERM signal,
// then drains best-effort. Not part of spec.md's named subcommand
// list, but the process-lifecycle wrapper the two-layer cron driver
// needs to run continuously outside of an external cron calling the
// one-shot subcommands directly.
func runServeCommand(ctx context.Context, eng *engine.Engine, cfg *config.Config) {
	if err := eng.RetentionSetupLifecycle(ctx); err != nil {
		logger.Zap().Warn("lifecycle setup failed at boot", zap.Error(err))
	}

	sched := scheduler.New(eng, scheduler.Config{
		DailyCron:  cfg.DailyCron,
		HourlyCron: cfg.HourlyCron,
	}, logger.Zap())
	sched.Start()
	logger.Zap().Info("scheduler started", zap.String("daily_cron", cfg.DailyCron), zap.String("hourly_cron", cfg.HourlyCron))

	<-ctx.Done()
	logger.Zap().Info("shutdown signal received, draining scheduler")
	sched.Stop(30 * time.Second)
}
