// Command scanproj inspects and aligns LiDAR scans.
//
// Usage:
//
//	scanproj [-config file.json] [-v] <command> [flags] [args]
//
// Commands:
//
//	project  print spherical and equirectangular pixel coordinates of points
//	rotate   print the tilt/yaw rotation matrix and rotated points
//	info     summarise a LAS file
//	align    rotate every point of a LAS file into a new file
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/scanproj/internal/config"
	"github.com/banshee-data/scanproj/internal/monitoring"
	"github.com/banshee-data/scanproj/internal/version"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// errUsage marks errors caused by bad command-line input.
var errUsage = errors.New("usage")

func usageErrorf(format string, v ...interface{}) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, v...))
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	logger := log.New(stderr, "scanproj: ", 0)
	monitoring.SetLogger(logger.Printf)

	fs := flag.NewFlagSet("scanproj", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to projection defaults JSON (e.g. "+config.DefaultConfigPath+")")
	showVersion := fs.Bool("version", false, "print version and exit")
	verbose := fs.Bool("v", false, "verbose logging")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: scanproj [-config file.json] [-v] <project|rotate|info|align> [flags] [args]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	if *showVersion {
		fmt.Fprintln(stdout, version.String("scanproj"))
		return exitOK
	}
	monitoring.SetVerbose(*verbose)

	cfg := config.EmptyProjectionConfig()
	if *configPath != "" {
		loaded, err := config.LoadProjectionConfig(*configPath)
		if err != nil {
			logger.Printf("failed to load config: %v", err)
			return exitError
		}
		cfg = loaded
		monitoring.Debugf("loaded config from %s", *configPath)
	}

	if fs.NArg() == 0 {
		fs.Usage()
		return exitUsage
	}

	c := &cli{cfg: cfg, stdout: stdout, stderr: stderr}
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	var err error
	switch cmd {
	case "project":
		err = c.project(rest)
	case "rotate":
		err = c.rotate(rest)
	case "info":
		err = c.info(rest)
	case "align":
		err = c.align(rest)
	default:
		err = usageErrorf("unknown command %q", cmd)
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, errUsage):
		logger.Printf("%v", err)
		return exitUsage
	default:
		logger.Printf("%s: %v", cmd, err)
		return exitError
	}
}
