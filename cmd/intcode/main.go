// Command intcode runs Intcode programs and the puzzle searches built on
// them, and serves the engine over JSON-RPC.
//
// Usage:
//
//	intcode [flags] run <program>
//	intcode [flags] amplify <program>
//	intcode [flags] nounverb <program>
//	intcode [flags] arcade <program>
//	intcode [flags] disasm <program>
//	intcode [flags] compress <program> <out.zst>
//	intcode [flags] serve
//
// Program files are comma-separated text, optionally zstd compressed.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

// Version information (set at build time)
var (
	Version   = "0.3.0"
	GitCommit = "dev"
	BuildTime = "unknown"
)

var log = commonlog.GetLogger("intcode")

// command is a subcommand entry point.
type command func(cfg Config, flags *cliFlags, args []string) error

var commands = map[string]command{
	"run":      runCommand,
	"amplify":  amplifyCommand,
	"nounverb": nounVerbCommand,
	"arcade":   arcadeCommand,
	"disasm":   disasmCommand,
	"compress": compressCommand,
	"serve":    serveCommand,
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: %s [flags] <command> [args]\n\n", os.Args[0])
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  run <program>             run once on -input and print the output")
	fmt.Fprintln(out, "  amplify <program>         find the phase ordering with the highest signal")
	fmt.Fprintln(out, "  nounverb <program>        gravity assist: value at 12,2 and the noun/verb for -target")
	fmt.Fprintln(out, "  arcade <program>          count block tiles drawn by the cabinet program")
	fmt.Fprintln(out, "  disasm <program>          print a listing")
	fmt.Fprintln(out, "  compress <program> <out>  write a zstd compressed copy")
	fmt.Fprintln(out, "  serve                     start the JSON-RPC and metrics servers")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Flags:")
	flag.PrintDefaults()
}

func main() {
	var flags cliFlags
	flags.register(flag.CommandLine)
	flag.Usage = usage
	flag.Parse()

	if flags.version {
		fmt.Printf("intcode %s (%s)\n", Version, GitCommit)
		fmt.Printf("Build time: %s\n", BuildTime)
		os.Exit(0)
	}

	cfg, found, err := loadConfig(flags.configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	flags.apply(&cfg, flag.CommandLine)

	if err := configureLogging(cfg.General); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if found {
		log.Infof("loaded configuration from %s", flags.configFile)
	} else {
		log.Debugf("no config file at %s, using defaults", flags.configFile)
	}

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	name := flag.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		usage()
		os.Exit(2)
	}

	if err := cmd(cfg, &flags, flag.Args()[1:]); err != nil {
		log.Errorf("%s: %s", name, err)
		os.Exit(1)
	}
}

func configureLogging(general GeneralConfig) error {
	v, err := verbosity(general.LogLevel)
	if err != nil {
		return err
	}

	var path *string
	if general.LogFile != "" {
		path = &general.LogFile
	}
	commonlog.Configure(v, path)
	return nil
}
