// Command counter reads detection lines from the detector, counts confirmed
// vehicles per road and serves the live counts and signal plans over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	ossignal "os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/intersection.report/internal/api"
	"github.com/banshee-data/intersection.report/internal/config"
	"github.com/banshee-data/intersection.report/internal/db"
	"github.com/banshee-data/intersection.report/internal/fsutil"
	"github.com/banshee-data/intersection.report/internal/monitoring"
	"github.com/banshee-data/intersection.report/internal/serialmux"
	"github.com/banshee-data/intersection.report/internal/version"
)

var (
	configPath      = flag.String("config", "", "Path to JSON config file (defaults to "+config.DefaultConfigPath+" when present)")
	listen          = flag.String("listen", ":8080", "Listen address")
	port            = flag.String("port", "", "Detector serial port, e.g. /dev/ttyUSB0")
	baudRate        = flag.Int("baud", serialmux.DefaultBaudRate, "Detector serial baud rate")
	replayPath      = flag.String("replay", "", "Replay a recorded detection log instead of reading the serial port")
	replayInterval  = flag.Duration("replay-interval", 0, "Delay between replayed lines")
	disableDetector = flag.Bool("disable-detector", false, "Run without a detector; only the HTTP API is served")
	detectorInit    = flag.String("detector-init", "", "Comma separated commands sent to the detector at startup")
	dbPathFlag      = flag.String("db-path", "", "Override db_path from the config")
	outputDirFlag   = flag.String("output", "", "Override output_dir from the config")
	exitOnEOS       = flag.Bool("exit-on-eos", false, "Exit once the detection feed ends instead of serving until interrupted")
	quiet           = flag.Bool("quiet", false, "Suppress per-detection logging")
	showVersion     = flag.Bool("version", false, "Print version and exit")
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		runMigrate(os.Args[2:])
		return
	}

	flag.Parse()

	if *showVersion {
		fmt.Println("counter", version.String())
		return
	}
	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	if *quiet {
		monitoring.SetLogger(nil)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	detector, err := openDetector()
	if err != nil {
		log.Fatalf("failed to open detector: %v", err)
	}
	defer detector.Close()

	if *detectorInit != "" {
		if err := serialmux.SendCommands(detector, strings.Split(*detectorInit, ",")...); err != nil {
			log.Fatalf("failed to initialise detector: %v", err)
		}
	}

	database, err := db.NewDB(cfg.GetDBPath())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	weights, err := cfg.Weights()
	if err != nil {
		log.Fatalf("invalid vehicle weights: %v", err)
	}

	sess, err := newSession(cfg, database)
	if err != nil {
		log.Fatalf("failed to start counting: %v", err)
	}

	var wg sync.WaitGroup
	ctx, stop := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// subscribe before the monitor starts so no line is missed
	lines := serialmux.Feed(ctx, detector)

	checkpoint := db.NewCheckpointWorker(database, sess.liveCounts, cfg.GetFlushInterval())
	checkpoint.Start()

	// run the monitor routine to manage IO on the detector port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := detector.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("failed to monitor detector: %v", err)
		}
		// closing the mux ends the feed when the input runs out
		detector.Close()
		log.Print("monitor routine terminated")
	}()

	// count the feed, then close the runs and write the reports
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sess.ingest(ctx, lines); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("counting stopped: %v", err)
		}
		checkpoint.Stop()
		if _, err := sess.finish(fsutil.OSFileSystem{}, cfg.GetOutputDir()); err != nil {
			log.Printf("failed to finish counting: %v", err)
		}
		log.Printf("counting routine terminated")
		if *exitOnEOS {
			stop()
		}
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		apiServer := api.NewServer(api.Options{
			Mux:       detector,
			DB:        database,
			Pipeline:  sess.pipeline,
			Signal:    cfg.SignalConfig(),
			Detection: cfg.DetectionConfig(),
			Weights:   weights,
		})

		mux := http.NewServeMux()
		mux.Handle("/api/", apiServer.ServeMux())
		detector.AttachAdminRoutes(mux)
		database.AttachAdminRoutes(mux)

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}

// loadConfig reads path, or the defaults file when path is empty, and applies
// the command line overrides.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if _, err := os.Stat(config.DefaultConfigPath); err != nil {
			return nil, fmt.Errorf("no -config given and %s not found", config.DefaultConfigPath)
		}
		path = config.DefaultConfigPath
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if *dbPathFlag != "" {
		cfg.DBPath = dbPathFlag
	}
	if *outputDirFlag != "" {
		cfg.OutputDir = outputDirFlag
	}
	return cfg, nil
}

func openDetector() (serialmux.SerialMuxInterface, error) {
	switch {
	case *disableDetector:
		log.Printf("detector disabled")
		return serialmux.NewDisabledSerialMux(), nil
	case *replayPath != "":
		log.Printf("replaying %s", *replayPath)
		return serialmux.OpenReplaySerialMux(*replayPath, *replayInterval)
	case *port != "":
		return serialmux.NewRealSerialMux(serialmux.PortOptions{Path: *port, BaudRate: *baudRate})
	}
	return nil, errors.New("one of -port, -replay or -disable-detector is required")
}

func runMigrate(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to JSON config file")
	dbPath := fs.String("db-path", "", "Database path (overrides the config)")
	fs.Usage = func() { db.PrintMigrateHelp(os.Stderr) }
	if err := fs.Parse(args); err != nil {
		log.Fatal(err)
	}

	path := *dbPath
	if path == "" {
		cfg := config.EmptyConfig()
		if *cfgPath != "" {
			var err error
			if cfg, err = config.LoadConfig(*cfgPath); err != nil {
				log.Fatalf("failed to load config: %v", err)
			}
		} else if loaded, err := config.LoadConfig(config.DefaultConfigPath); err == nil {
			cfg = loaded
		}
		path = cfg.GetDBPath()
	}

	if err := db.RunMigrateCommand(fs.Args(), path, os.Stdout); err != nil {
		log.Fatalf("migrate: %v", err)
	}
}
