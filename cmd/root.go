package cmd

import (
	"fmt"
	"os"
)

const version = "0.1.0"

// knownSubcommands is the set of CLI subcommands that bypass the TUI.
var knownSubcommands = map[string]bool{
	"check":   true,
	"creds":   true,
	"config":  true,
	"themes":  true,
	"version": true,
	"help":    true,
}

// IsSubcommand returns true if the argument is a known CLI subcommand.
func IsSubcommand(arg string) bool {
	return knownSubcommands[arg]
}

// Execute dispatches to the appropriate CLI subcommand handler.
func Execute(args []string) {
	if len(args) == 0 {
		return
	}

	switch args[0] {
	case "check":
		checkCmd(args[1:])
	case "creds":
		credsCmd(args[1:])
	case "config":
		configCmd(args[1:])
	case "themes":
		themesCmd()
	case "version":
		fmt.Printf("dumamon v%s\n", version)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`dumamon - DumaOS router traffic monitor

Usage:
  dumamon                   Launch TUI monitor
  dumamon serve             Run headless with the HTTP API
  dumamon --theme NAME      Launch with theme override
  dumamon check HOST        Poll a router once and print what it reports
  dumamon creds <cmd>       Manage router credentials
  dumamon config <cmd>      Manage configuration
  dumamon themes            List available themes
  dumamon version           Show version
  dumamon help              Show this help

Check:
  dumamon check [--creds NAME] [--insecure] [--timeout DUR] HOST

Credential Commands:
  dumamon creds list               List stored credential profiles
  dumamon creds add                Add a new profile (interactive)
  dumamon creds remove NAME        Remove a profile
  dumamon creds test NAME HOST     Test a profile against a router

Config Commands:
  dumamon config path              Show config directory path
  dumamon config show              Print the effective configuration
  dumamon config theme NAME        Set default theme`)
}
