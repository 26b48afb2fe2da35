package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

func init() {
	InitializeLogger()
}

// Populated by ldflags
var (
	version            string
	buildUnixTimestamp string
	commitHash         string
)

func main() {
	ts, _ := strconv.ParseInt(buildUnixTimestamp, 10, 64)
	buildTime := time.Unix(ts, 0)

	var flags Flags
	flag.StringVar(&flags.ConfigPath, "config", "", "Path to the TOML config file")
	flag.StringVar(&flags.Bank, "bank", "", "Bank to drive: led, relay or sim")
	flag.StringVar(&flags.Backend, "backend", "", "GPIO backend: sysfs, cdev, rpio or dryrun")
	flag.BoolVar(&flags.Verbose, "v", false, "Debug logging")
	versionFlag := flag.Bool("version", false, "Print version")
	systemdFlag := flag.Bool("systemd", false, "Print systemd service file")
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "Usage: %s [flags] COMMAND [ARGS] [COMMAND [ARGS]...]\n\nFlags:\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintln(out)
		Usage(out)
	}
	flag.Parse()

	if *versionFlag {
		fmt.Println("Shiftbank version:", version)
		fmt.Println("Built on:", buildTime)
		fmt.Println("Commit hash:", commitHash)
		return
	}

	if *systemdFlag {
		params := ShiftbankServiceParams{
			User:  "root",
			Banks: []string{"led", "relay"},
		}
		if err := SystemdServiceFile(os.Stdout, params); err != nil {
			log.Fatal().Err(err).Msg("Could not render service file")
		}
		return
	}

	config, err := NewConfig(newHostOSFS(), flags, os.Getenv)
	if err != nil {
		log.Fatal().Err(err).Msg("Config initialization failed")
	}
	zerolog.SetGlobalLevel(config.LogLevel())

	log.Debug().
		Str("version", version).
		Str("build_timestamp", buildTime.Format(time.RFC3339)).
		Str("commit_hash", commitHash).
		Str("config", config.Path()).
		Msg("Initializing Shiftbank")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, config, afero.NewOsFs(), flag.Args(), os.Stdout); err != nil {
		if errors.Is(err, ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			flag.Usage()
			os.Exit(2)
		}
		log.Fatal().Err(err).Msg("Command failed")
	}
}

// run parses the whole command line before touching any line, so a typo
// late in the program cannot leave the bank half driven.
func run(ctx context.Context, config *Config, fsys afero.Fs, args []string, out io.Writer) (err error) {
	steps, err := ParseProgram(args)
	if err != nil {
		return err
	}

	lines, err := OpenLines(config, fsys)
	if err != nil {
		return err
	}
	if lines != nil {
		defer func() {
			if closeErr := lines.Close(); closeErr != nil {
				log.Warn().Err(closeErr).Msg("Releasing GPIO lines failed")
			}
		}()
	}

	sr, err := NewRegister(config, lines)
	if err != nil {
		return err
	}

	role, _ := config.Role()
	return NewRunner(sr, config.Bank(role).Outputs, out).Run(ctx, steps)
}
