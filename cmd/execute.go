// Package cmd contains the command-line entry points. main.go stays a
// minimal wrapper around Execute.
package cmd

import (
	"fmt"
	"os"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "0.0.1"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// Execute routes the command line. `serve` is the default so that a bare
// `caddie` starts the API server.
func Execute() error {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			return printVersionInfo()
		case "help", "--help", "-h":
			printHelp()
			return nil
		case "serve":
			return runServe()
		case "index":
			return runIndex(os.Args[2:])
		default:
			fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
			printHelp()
			return fmt.Errorf("unknown command: %s", os.Args[1])
		}
	}

	return runServe()
}

func printVersionInfo() error {
	fmt.Printf("caddie v%s\n", AppVersion)
	fmt.Printf("Build: %s\n", BuildTime)
	fmt.Printf("Commit: %s\n", GitCommit)
	return nil
}

func printHelp() {
	fmt.Println("caddie - GolfGuiders assistant API")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  caddie                    Start the HTTP API server (default)")
	fmt.Println("  caddie serve              Start the HTTP API server")
	fmt.Println("  caddie index [flags]      Index knowledge documents from JSONL")
	fmt.Println("  caddie version            Show version information")
	fmt.Println("  caddie help               Show this help")
	fmt.Println()
	fmt.Println("Index flags:")
	fmt.Println("  -file <path>              JSONL file, one document per line")
	fmt.Println("  -collection <name>        Target collection: courses or manual")
	fmt.Println()
	fmt.Println("Configuration comes from ~/.caddie/config.yaml and CADDIE_*")
	fmt.Println("environment variables. DATABASE_URL overrides the postgres_*")
	fmt.Println("settings.")
}
