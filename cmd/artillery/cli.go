package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const usageText = `usage: artillery <command> [flags]

commands:
  run      play a match and record it
  replay   regenerate a recorded match from its seed and verify the terrain
  export   write a recorded match to a JSON file
  version  print the version

run "artillery <command> --help" for the flags of a command.
`

// errUsage marks argument errors; run exits with status 2 for them.
var errUsage = errors.New("usage")

// commonFlags are shared by every command.
type commonFlags struct {
	configDir string
}

// newFlagSet creates a command's flag set with the shared flags bound into viper.
func newFlagSet(name string, stderr io.Writer) (*pflag.FlagSet, *commonFlags) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	c := &commonFlags{}
	fs.StringVarP(&c.configDir, "config", "c", ".", "directory holding artillery.cfg.json")
	fs.String("log-level", "info", "DEBUG, INFO, WARN or ERROR")
	fs.String("logs-dir", "./artillerylogs", "directory for log files")
	return fs, c
}

// bind maps flag names to viper keys. Only flags set on the command line override the config.
func bind(fs *pflag.FlagSet, keys map[string]string) error {
	for flag, key := range keys {
		f := fs.Lookup(flag)
		if f == nil {
			return fmt.Errorf("unknown flag %q", flag)
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

var commonKeys = map[string]string{
	"log-level": "logLevel",
	"logs-dir":  "logsDir",
}

// run executes one command and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usageText)
		return 2
	}

	var err error
	switch cmd, rest := strings.ToLower(args[0]), args[1:]; cmd {
	case "run":
		err = runCommand(rest, stdin, stdout, stderr)
	case "replay":
		err = replayCommand(rest, stdout, stderr)
	case "export":
		err = exportCommand(rest, stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "%s %s (built %s)\n", AppName, Version, BuildDate)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usageText)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usageText)
		return 2
	}

	switch {
	case err == nil, errors.Is(err, pflag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintln(stderr, "error:", err)
		return 2
	default:
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
}
