package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"dumamon/internal/config"
	"dumamon/internal/creds"
	"dumamon/internal/dumaos"
	"dumamon/internal/logger"
)

func credsCmd(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: dumamon creds <list|add|remove|test>")
		os.Exit(1)
	}

	switch args[0] {
	case "list":
		credsList()
	case "add":
		credsAdd()
	case "remove":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: dumamon creds remove NAME")
			os.Exit(1)
		}
		credsRemove(args[1])
	case "test":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: dumamon creds test NAME HOST")
			os.Exit(1)
		}
		credsTest(args[1], args[2])
	default:
		fmt.Fprintf(os.Stderr, "Unknown creds command: %s\n", args[0])
		fmt.Fprintln(os.Stderr, "Usage: dumamon creds <list|add|remove|test>")
		os.Exit(1)
	}
}

// openStore opens the credential store, prompting for the master password
// if needed. Tries empty password first to support no-password vaults.
func openStore() *creds.FileStore {
	storePath, err := config.GetCredentialStorePath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.EnsureDirs(); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating config directories: %v\n", err)
		os.Exit(1)
	}

	// Try empty password first (no-password vault)
	store, storeErr := creds.NewFileStore(storePath, []byte(""))
	if storeErr == nil {
		return store
	}

	// Empty password didn't work, try env var or prompt
	password := getMasterPassword()
	store, storeErr = creds.NewFileStore(storePath, password)
	if storeErr != nil {
		fmt.Fprintf(os.Stderr, "Error opening credential store: %v\n", storeErr)
		os.Exit(1)
	}
	return store
}

// getMasterPassword reads the master password from DUMAMON_MASTER_KEY or prompts.
func getMasterPassword() []byte {
	if key := os.Getenv("DUMAMON_MASTER_KEY"); key != "" {
		return []byte(key)
	}

	fmt.Fprint(os.Stderr, "Master password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr) // newline after password input
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading password: %v\n", err)
		os.Exit(1)
	}
	return password
}

func credsList() {
	store := openStore()
	summaries, err := store.List()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing credentials: %v\n", err)
		os.Exit(1)
	}

	if len(summaries) == 0 {
		fmt.Println("No credential profiles configured.")
		return
	}

	for _, s := range summaries {
		line := fmt.Sprintf("%-20s", s.Name)
		if s.Username != "" {
			line += fmt.Sprintf("  user=%s", s.Username)
		}
		fmt.Println(line)
	}
}

func credsAdd() {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Profile name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Fprintln(os.Stderr, "Error: name is required")
		os.Exit(1)
	}

	fmt.Print("Router username (often admin, blank for none): ")
	username, _ := reader.ReadString('\n')
	username = strings.TrimSpace(username)

	fmt.Fprint(os.Stderr, "Router password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading password: %v\n", err)
		os.Exit(1)
	}

	store := openStore()
	p := creds.Profile{
		Name:     name,
		Username: username,
		Password: string(password),
	}
	if err := store.Add(p); err != nil {
		fmt.Fprintf(os.Stderr, "Error adding profile: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Profile %q added.\n", name)
}

func credsRemove(name string) {
	store := openStore()
	if err := store.Remove(name); err != nil {
		fmt.Fprintf(os.Stderr, "Error removing profile: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Profile %q removed.\n", name)
}

func credsTest(name, host string) {
	store := openStore()
	p, err := store.Get(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Testing connectivity to %s using profile %q...\n", host, name)

	client := dumaos.NewClient(dumaos.Config{
		Host:     host,
		Timeout:  10 * time.Second,
		Username: p.Username,
		Password: p.Password,
	}, logger.New(logger.Config{Level: "warn"}))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	info, err := client.SystemInfo(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error talking to %s: %v\n", host, err)
		os.Exit(1)
	}

	fmt.Printf("Firmware: %s\n", info.Firmware)
	if info.Board != "" {
		fmt.Printf("Board:    %s\n", info.Board)
	}
	fmt.Printf("Uptime:   %s\n", formatUptime(info.UptimeSeconds))
	fmt.Println("Connection test successful.")
}
