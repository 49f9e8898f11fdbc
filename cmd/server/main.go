package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/himanishpuri/SpeechGate/internal/config"
	"github.com/himanishpuri/SpeechGate/pkg/logger"
	"github.com/himanishpuri/SpeechGate/pkg/speechgate"
)

type Flags struct {
	Port     int    `help:"HTTP server port" env:"SPEECHGATE_PORT" default:"8080"`
	DB       string `help:"Path to SQLite database" env:"SPEECHGATE_DB_PATH" default:"${db_path}" type:"path"`
	TempDir  string `name:"temp" help:"Temporary directory" env:"SPEECHGATE_TEMP_DIR" default:"/tmp" type:"path"`
	Config   string `short:"c" help:"JSON filter configuration" type:"existingfile"`
	Workers  int    `short:"w" help:"Parallel workers per run (0 = all CPUs)" env:"SPEECHGATE_WORKERS" default:"4"`
	Origins  string `help:"Comma-separated list of allowed CORS origins (use * for all)" default:"*"`
	LogLevel string `help:"Log level (debug, info, warn, error)" env:"LOG_LEVEL" default:"info" enum:"debug,info,warn,error"`
}

func parseOrigins(raw string) []string {
	if raw == "*" {
		return []string{"*"}
	}
	origins := strings.Split(raw, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return origins
}

func main() {
	_ = godotenv.Load()

	flags := &Flags{}
	kong.Parse(flags,
		kong.Name("speechgate-server"),
		kong.Description("HTTP API for the speech quality gate"),
		kong.Vars{"db_path": speechgate.DefaultDBPath},
	)

	if level, ok := logger.ParseLevel(flags.LogLevel); ok {
		logger.SetLevel(level)
	}

	filterCfg, err := config.Load(flags.Config)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	rec := speechgate.NewMetricsRecorder()
	if err := rec.RegisterRuntimeCollectors(); err != nil {
		log.Fatalf("Failed to register runtime metrics: %v", err)
	}
	service, err := speechgate.NewService(
		speechgate.WithDBPath(flags.DB),
		speechgate.WithTempDir(flags.TempDir),
		speechgate.WithWorkers(flags.Workers),
		speechgate.WithFilterConfig(filterCfg),
		speechgate.WithMetrics(rec),
	)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	server := NewServer(service, rec, &ServerConfig{
		Port:           flags.Port,
		DBPath:         flags.DB,
		TempDir:        flags.TempDir,
		Workers:        flags.Workers,
		Filter:         filterCfg,
		AllowedOrigins: parseOrigins(flags.Origins),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
