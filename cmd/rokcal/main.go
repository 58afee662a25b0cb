package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"rokcal/internal/capture"
	"rokcal/internal/catalog"
	"rokcal/internal/config"
	appLog "rokcal/internal/log"
	"rokcal/internal/metrics"
	"rokcal/internal/model"
	"rokcal/internal/view"
	"rokcal/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	envFile    string
	listen     string
	once       bool
	snapshot   string
}

func main() {
	appLog.Info("rokcal starting", "version", "0.1.0")

	flags := parseFlags()

	// A .env file only seeds ROKCAL_* variables that are not already set.
	if err := godotenv.Load(flags.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		appLog.Error("failed to read env file", err, "path", flags.envFile)
		os.Exit(1)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if lvl, ok := appLog.ParseLevel(conf.LogLevel); ok {
		appLog.SetLevel(lvl)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"locale", conf.Locale,
		"week_start", conf.WeekStart,
		"source", conf.Source.Mode,
		"refresh", conf.RefreshCron,
		"horizon_months", conf.HorizonMonths,
		"horizon_years", conf.HorizonYears,
		"once", flags.once,
		"snapshot", flags.snapshot,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf, flags); err != nil {
		appLog.Error("rokcal exited with error", err)
		os.Exit(1)
	}
	appLog.Info("rokcal exiting")
}

func run(ctx context.Context, conf *config.Config, flags flagConfig) error {
	loc := conf.Location()
	weekStart := conf.FirstWeekday()
	m := metrics.NewManager()

	store := catalog.NewStore(newLoader(conf, loc, weekStart), catalog.StoreOptions{
		Location:      loc,
		HorizonMonths: conf.HorizonMonths,
		HorizonYears:  conf.HorizonYears,
		Metrics:       m,
	})

	// The first load failing is not fatal for the server: the UI reports
	// the error and POST /api/refresh retries.
	initialErr := store.Refresh(ctx)

	if flags.once {
		if initialErr != nil {
			return initialErr
		}
		printSummary(store.Snapshot(), loc)
		return nil
	}

	locale, err := view.LocaleFor(conf.Locale)
	if err != nil {
		return err
	}
	renderer, err := view.NewRenderer(locale, loc, weekStart, conf.UpcomingLimit)
	if err != nil {
		return err
	}
	srv := web.NewServer(conf, store, renderer, m)

	sched, err := catalog.NewScheduler(conf.RefreshCron, loc, store)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(gctx) })
	g.Go(func() error { return sched.Run(gctx) })

	if flags.snapshot != "" {
		g.Go(func() error {
			defer cancel()
			if err := waitForServer(gctx, strings.TrimPrefix(localURL(conf.Listen), "http://")); err != nil {
				return err
			}
			opts := capture.Options{
				BaseURL:    localURL(conf.Listen),
				OutputPath: flags.snapshot,
			}
			if conf.BasicAuth != nil {
				opts.Username = conf.BasicAuth.Username
				opts.Password = conf.BasicAuth.Password
			}
			if err := capture.CalendarPNG(gctx, opts); err != nil {
				return err
			}
			appLog.Info("snapshot written", "path", flags.snapshot)
			return nil
		})
	}

	return g.Wait()
}

func newLoader(conf *config.Config, loc *time.Location, weekStart time.Weekday) catalog.Loader {
	if conf.Source.Mode == config.SourceRemote {
		f := catalog.NewFetcher(conf.Source.CacheDir,
			catalog.WithHTTPClient(&http.Client{Timeout: conf.Timeout()}),
			catalog.WithRetries(conf.Source.Retries, 0),
			catalog.WithUserAgent(conf.Proxy.UserAgent),
		)
		return catalog.RemoteLoader{Fetcher: f, URL: conf.Source.URL, Location: loc}
	}
	return catalog.StaticLoader{Path: conf.Source.CatalogPath, Location: loc, WeekStart: weekStart}
}

// localURL turns a listen address into a URL the browser can reach;
// ":8080" binds every interface but is not navigable.
func localURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// waitForServer polls the listen address until it accepts connections.
func waitForServer(ctx context.Context, addr string) error {
	deadline := time.Now().Add(10 * time.Second)
	for {
		conn, err := net.DialTimeout("tcp", addr, 500*time.Millisecond)
		if err == nil {
			return conn.Close()
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("server at %s did not come up: %w", addr, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func printSummary(snap *catalog.Snapshot, loc *time.Location) {
	if snap == nil {
		fmt.Println("no snapshot")
		return
	}
	fmt.Printf("templates:   %d\n", len(snap.Templates))
	fmt.Printf("occurrences: %d\n", snap.Index.Len())
	fmt.Printf("horizon end: %s\n", snap.HorizonEnd.In(loc).Format(time.RFC3339))
	if len(snap.Truncated) > 0 {
		fmt.Printf("truncated:   %v\n", snap.Truncated)
	}
	for _, w := range snap.Warnings {
		fmt.Printf("warning:     %s pattern=%d %s\n", w.TemplateID, w.Pattern, w.Reason)
	}

	now := time.Now().In(loc)
	fmt.Println("upcoming:")
	for _, o := range snap.Index.Upcoming(model.StartOfDay(now), 10) {
		fmt.Printf("  %s  %s\n", o.Date.In(loc).Format("2006-01-02"), o.Template.Title)
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./config.yaml", "Path to config file")
	flag.StringVar(&cfg.envFile, "env-file", ".env", "Optional dotenv file with ROKCAL_* overrides")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Load and expand the catalog once, print a summary and exit")
	flag.StringVar(&cfg.snapshot, "snapshot", "", "Serve, write a PNG of /calendar to this path and exit")

	flag.Parse()

	return cfg
}
