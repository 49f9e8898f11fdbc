package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/himanishpuri/SpeechGate/internal/cli"
	"github.com/himanishpuri/SpeechGate/internal/config"
	"github.com/himanishpuri/SpeechGate/pkg/logger"
	"github.com/himanishpuri/SpeechGate/pkg/speechgate"
)

var (
	version = "0.1.0"
)

// Globals are shared by every command.
type Globals struct {
	Version  versionFlag `short:"v" help:"Show version information"`
	LogLevel string      `help:"Log level (debug, info, warn, error)" env:"LOG_LEVEL" default:"info" enum:"debug,info,warn,error"`
	DB       string      `help:"Path to the SQLite database" env:"SPEECHGATE_DB_PATH" default:"${db_path}" type:"path"`
	TempDir  string      `help:"Directory for temporary audio conversion files" env:"SPEECHGATE_TEMP_DIR" type:"path"`
}

// CLI defines the command-line interface
type CLI struct {
	Globals

	Filter FilterCmd `cmd:"" help:"Compute quality metrics and accept or reject audio files"`
	Runs   RunsCmd   `cmd:"" help:"Inspect stored filtering runs"`
	Config ConfigCmd `cmd:"" help:"Print the default filter configuration as JSON"`

	Spectrogram SpectrogramCmd `cmd:"" help:"Render spectrogram PNGs for manual review"`
}

func main() {
	// A missing .env file is fine; flags and the environment still apply.
	_ = godotenv.Load()

	args := &CLI{}
	ctx := kong.Parse(args,
		kong.Name("speechgate"),
		kong.Description("Quality gate for speech recording corpora"),
		kong.UsageOnError(),
		kong.Vars{
			"version":     version,
			"db_path":     speechgate.DefaultDBPath,
			"sample_rate": strconv.Itoa(config.DefaultSampleRate),
		},
	)

	if level, ok := logger.ParseLevel(args.LogLevel); ok {
		logger.SetLevel(level)
	}

	if err := ctx.Run(&args.Globals); err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
}

type versionFlag bool

// BeforeApply runs ahead of command validation so -v works without a subcommand.
func (versionFlag) BeforeApply(app *kong.Kong) error {
	cli.PrintVersion(version)
	app.Exit(0)
	return nil
}

func (g *Globals) newService(opts ...speechgate.Option) (speechgate.Service, error) {
	base := []speechgate.Option{speechgate.WithDBPath(g.DB)}
	if g.TempDir != "" {
		base = append(base, speechgate.WithTempDir(g.TempDir))
	}
	return speechgate.NewService(append(base, opts...)...)
}

func parseAcceptedFilter(only string) (*bool, error) {
	switch strings.ToLower(only) {
	case "", "all":
		return nil, nil
	case "accepted":
		v := true
		return &v, nil
	case "rejected":
		v := false
		return &v, nil
	default:
		return nil, fmt.Errorf("unknown filter %q (want all, accepted or rejected)", only)
	}
}
