package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/you/sc-chat-translator/internal/app"
	"github.com/you/sc-chat-translator/internal/applog"
	"github.com/you/sc-chat-translator/internal/config"
	"github.com/you/sc-chat-translator/internal/console"
	"github.com/you/sc-chat-translator/internal/dictionary"
	httpadmin "github.com/you/sc-chat-translator/internal/http"
	"github.com/you/sc-chat-translator/internal/httpapi"
	"github.com/you/sc-chat-translator/internal/logtail"
	"github.com/you/sc-chat-translator/internal/pipeline"
	"github.com/you/sc-chat-translator/internal/remotesync"
	"github.com/you/sc-chat-translator/internal/scheduler"
	"github.com/you/sc-chat-translator/internal/settings"
	"github.com/you/sc-chat-translator/internal/sink"
	"github.com/you/sc-chat-translator/internal/translate"
	"github.com/you/sc-chat-translator/internal/version"
	"github.com/you/sc-chat-translator/internal/welcome"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	var (
		versionFlag   bool
		logsPath      string
		dbPath        string
		httpAddr      string
		exportCSV     string
		historyDate   string
		lastSession   bool
		translateText string
		plain         bool
	)

	flag.BoolVar(&versionFlag, "version", false, "Print build version and exit")
	flag.StringVar(&logsPath, "logs", "", "Game logs folder (overrides settings for this run)")
	flag.StringVar(&dbPath, "db", "", "Path to the chat history SQLite database")
	flag.StringVar(&httpAddr, "http-addr", "", "HTTP status/stream address (e.g., :8765)")
	flag.StringVar(&exportCSV, "export-csv", "", "Export the chat history to this CSV file and exit")
	flag.StringVar(&historyDate, "history-date", "", "Print the stored messages for a day (YYYY-MM-DD) and exit")
	flag.BoolVar(&lastSession, "last-session", false, "Print the stored messages of the last session and exit")
	flag.StringVar(&translateText, "translate", "", "Translate text into the manual language, copy it and exit")
	flag.BoolVar(&plain, "plain", false, "Disable colours in console output")
	flag.Parse()

	if versionFlag {
		fmt.Printf(
			"translator version: %s (commit %s, built %s)\n",
			version.Version,
			version.Commit,
			version.BuildTime,
		)
		os.Exit(0)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("translator: .env: %v", err)
	}

	overrides := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		overrides[f.Name] = true
	})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("translator: %v", err)
	}
	if overrides["logs"] {
		cfg.LogsPath = strings.TrimSpace(logsPath)
	}
	if overrides["db"] {
		cfg.Sink.SQLitePath = strings.TrimSpace(dbPath)
	}
	if overrides["http-addr"] {
		cfg.HTTP.Addr = strings.TrimSpace(httpAddr)
	}
	if overrides["plain"] {
		cfg.Plain = plain
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		if dataDir, err = settings.DataDir(); err != nil {
			log.Fatalf("translator: data dir: %v", err)
		}
	}
	paths := settings.Paths(dataDir)
	if cfg.Sink.SQLitePath == "" {
		cfg.Sink.SQLitePath = paths.Database
	}

	logFile := ""
	if cfg.Log.File {
		logFile = paths.Log
	}
	logger, err := applog.New(applog.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON, File: logFile})
	if err != nil {
		log.Fatalf("translator: logger: %v", err)
	}
	defer logger.Close()

	configSnapshot := cfg.RedactedJSON()
	log.Printf("%s", cfg.SummaryJSON())

	store, err := settings.Open(paths.Settings)
	if err != nil {
		log.Fatalf("translator: settings: %v", err)
	}
	prefs := store.Get()
	if cfg.LogsPath != "" {
		prefs.GameLogsPath = cfg.LogsPath
	}

	local, created, err := dictionary.LoadFile(paths.Dictionary)
	if err != nil {
		log.Printf("translator: dictionary %s: %v; using built-in entries", paths.Dictionary, err)
		local = dictionary.Default()
	} else if created {
		log.Printf("translator: dictionary: wrote defaults to %s", paths.Dictionary)
	}
	dict := dictionary.NewHolder(local)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	engine := remotesync.New(store, remotesync.Options{
		DescriptorURL: prefs.RemoteWelcomeURL,
		DictionaryURL: prefs.RemoteDictionaryURL,
		AppVersion:    version.Version,
		UserAgent:     version.UserAgent(),
		Logger:        logger.Logger,
		Metrics:       remotesync.NewMetrics(reg),
	})
	application := app.New(store, dict, paths.Dictionary, engine, logger.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("translator: received %s, shutting down", sig)
		cancel()
	}()

	failureMode, err := translate.ParseFailureMode(cfg.Translate.FailureMode)
	if err != nil {
		log.Fatalf("translator: %v", err)
	}
	backend, err := newBackend(cfg.Translate)
	if err != nil {
		log.Fatalf("translator: %v", err)
	}
	cache, closeCache := newCache(ctx, cfg.Translate)
	defer closeCache()
	gateway := translate.NewGateway(backend, translate.Options{
		Cache:   cache,
		RPS:     cfg.Translate.RPS,
		Burst:   cfg.Translate.Burst,
		Metrics: translate.NewMetrics(reg),
		Logger:  logger.Logger,
	})
	var clip translate.Clipboard = translate.NopClipboard{}
	if cfg.Clipboard {
		clip = translate.SystemClipboard{}
	}
	manual := translate.NewManual(gateway, clip)
	out := console.New(os.Stdout, cfg.Plain)

	if translateText != "" {
		res, ok := manual.Translate(ctx, translateText, application.ManualLang())
		if !ok {
			log.Fatal("translator: nothing to translate")
		}
		out.Manual(res)
		return
	}

	sinkDB, err := sink.OpenSQLite(cfg.Sink.SQLitePath, cfg.Sink.SQLiteTuning)
	if err != nil {
		log.Fatalf("translator: open sqlite: %v", err)
	}
	defer func() {
		if err := sinkDB.Close(); err != nil {
			log.Printf("translator: closing sink: %v", err)
		}
	}()
	if err := sinkDB.Ping(); err != nil {
		log.Fatalf("translator: ping sqlite: %v", err)
	}
	if err := migrateSQLite(ctx, sinkDB.RawDB()); err != nil {
		log.Fatalf("translator: sqlite migrate: %v", err)
	}

	if done, err := runOneShot(ctx, sinkDB, out, exportCSV, historyDate, lastSession); done {
		if err != nil {
			log.Fatalf("translator: %v", err)
		}
		return
	}

	var (
		api    *httpapi.Server
		writer sink.Writer = sinkDB
	)
	if cfg.HTTP.Addr != "" {
		build := httpapi.BuildInfo{Version: version.Version, Revision: version.Commit}
		if version.BuildTime != "" && version.BuildTime != "unknown" {
			if t, err := time.Parse(time.RFC3339, version.BuildTime); err == nil {
				build.BuiltAt = t
			}
		}
		api = httpapi.New(sinkDB, httpapi.Options{
			Addr:            cfg.HTTP.Addr,
			CORSOrigins:     cfg.HTTP.CORSOrigins,
			RateLimitRPS:    cfg.HTTP.RateRPS,
			RateLimitBurst:  cfg.HTTP.RateBurst,
			EnableMetrics:   cfg.HTTP.Metrics,
			EnableAccessLog: cfg.HTTP.AccessLog,
			EnablePprof:     cfg.HTTP.Pprof,
			Build:           build,
			ConfigSnapshot:  configSnapshot,
			Registry:        reg,
			TranslatorName:  gateway.Backend(),
			TargetLang:      application.TargetLang,
			ManualLang:      application.ManualLang,
			Manual:          manual,
			Versions:        application,
		})
		httpadmin.New(application).Register(api.Mux())
		go func() {
			if err := api.Start(); err != nil {
				log.Fatalf("translator: http api: %v", err)
			}
		}()
		writer = sink.WithAPI(sinkDB, api)
		log.Printf("translator: http api ready on %s", cfg.HTTP.Addr)
	}

	var buffered *sink.BufferedWriter
	if cfg.Batch() > 1 || cfg.FlushInterval() > 0 {
		buffered = sink.NewBufferedWriter(writer, sink.BufferedOptions{
			BatchSize:     cfg.Batch(),
			FlushInterval: cfg.FlushInterval(),
		})
		writer = buffered
	}

	proc := pipeline.New(pipeline.Options{
		Dictionary:   dict,
		Translator:   gateway,
		Writer:       writer,
		Presenters:   []pipeline.Presenter{out},
		TargetLang:   application.TargetLang,
		FailureMode:  failureMode,
		Metrics:      pipeline.NewMetrics(reg),
		Logger:       logger.Logger,
		VerboseDrops: cfg.Log.DebugDrops,
		Trace:        cfg.Log.Trace,
	})

	if !cfg.Sync.Disabled {
		syncCtx, cancelSync := context.WithTimeout(ctx, cfg.Sync.Timeout)
		application.Tick(syncCtx)
		cancelSync()
	}
	showWelcome(ctx, engine, gateway, application, out)

	if err := application.WatchDictionaryFile(ctx); err != nil {
		log.Printf("translator: watch dictionary: %v", err)
	}

	sched := scheduler.New(logger.Logger)
	if !cfg.Sync.Disabled {
		if err := sched.Every("remote-sync", cfg.Sync.Every, application.Tick); err != nil {
			log.Printf("translator: %v", err)
		}
	}
	sched.Start()

	tailer := logtail.New(logtail.Options{
		Root:     prefs.GameLogsPath,
		FileName: cfg.LogFileName,
		Logger:   logger.Logger,
		OnRotate: func(path, sessionID string) {
			out.Info("Reading chat log: " + path)
			logger.Info("logtail: active log changed", "path", path, "session", sessionID)
		},
	})
	out.Info("Waiting for chat in " + prefs.GameLogsPath)
	if err := tailer.Run(ctx, func(line logtail.Line) {
		proc.Handle(context.WithoutCancel(ctx), line)
	}); err != nil {
		log.Printf("translator: tail: %v", err)
	}

	sched.Stop()
	proc.Flush()
	if buffered != nil {
		if err := buffered.Close(); err != nil {
			log.Printf("translator: flush buffered sink: %v", err)
		}
	}
	if api != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		if err := api.Shutdown(shutdownCtx); err != nil {
			log.Printf("translator: http api shutdown: %v", err)
		}
		cancelShutdown()
	}
	log.Printf("translator: shutdown complete")
}

// showWelcome prints the startup banner, then the welcome message while the
// shown counter is below the cap. Text is translated into the current target
// language.
func showWelcome(ctx context.Context, engine *remotesync.Engine, gw *translate.Gateway, a *app.App, out *console.Console) {
	w, err := engine.StartupWelcome()
	if err != nil {
		log.Printf("translator: welcome state: %v", err)
	}
	lines := welcome.Render(ctx, w, version.Version, func(ctx context.Context, text string) string {
		translated, _ := gw.Translate(ctx, text, a.TargetLang(), translate.ModeBackground)
		return translated
	})
	out.Welcome(lines)
}

// runOneShot handles the history flags. done reports whether one of them ran.
func runOneShot(ctx context.Context, db *sink.SQLiteSink, out *console.Console, csvPath, date string, last bool) (done bool, err error) {
	switch {
	case csvPath != "":
		f, err := os.Create(csvPath)
		if err != nil {
			return true, fmt.Errorf("export csv: %w", err)
		}
		n, err := db.ExportCSV(ctx, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return true, fmt.Errorf("export csv: %w", err)
		}
		out.Info(fmt.Sprintf("Exported %d messages to %s", n, csvPath))
		return true, nil
	case date != "":
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return true, fmt.Errorf("history date %q: expected YYYY-MM-DD", date)
		}
		rows, err := db.QueryByDate(ctx, date)
		if err != nil {
			return true, fmt.Errorf("history: %w", err)
		}
		out.History(rows)
		return true, nil
	case last:
		rows, err := db.QueryLastSession(ctx)
		if err != nil {
			return true, fmt.Errorf("last session: %w", err)
		}
		out.History(rows)
		return true, nil
	}
	return false, nil
}
