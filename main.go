package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"dumamon/cmd"
	"dumamon/internal/config"
	"dumamon/internal/creds"
	"dumamon/internal/dumaos"
	"dumamon/internal/engine"
	"dumamon/internal/logger"
	"dumamon/internal/web"
	"dumamon/tui"
)

func main() {
	args := os.Args[1:]
	if len(args) > 0 && cmd.IsSubcommand(args[0]) {
		cmd.Execute(args)
		return
	}

	// "serve" is handled here rather than in cmd because it shares the
	// full engine wiring with TUI mode.
	serveSub := len(args) > 0 && args[0] == "serve"
	if serveSub {
		args = args[1:]
	}

	fs := flag.NewFlagSet("dumamon", flag.ExitOnError)
	serve := fs.Bool("serve", false, "Run headless with the HTTP API instead of the TUI")
	theme := fs.String("theme", "", "Theme override for this session")
	cfgPath := fs.String("config", "", "Path to config file")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if serveSub {
		*serve = true
	}

	cfg := loadConfig(*cfgPath)

	log := buildLogger(cfg, *serve)

	mgr := engine.NewManager(log)
	if err := startRouters(cfg, mgr, log); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *serve {
		runServe(cfg, mgr, log)
		return
	}

	model := tui.NewAppModel(cfg, mgr, *theme)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) *config.Config {
	if path == "" {
		cfgDir, err := config.GetConfigDir()
		if err != nil {
			return config.DefaultConfig()
		}
		path = filepath.Join(cfgDir, "config.toml")
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// buildLogger routes logs to the configured output, except in TUI mode
// where stderr would corrupt the display: there, unset output goes to the
// log file instead.
func buildLogger(cfg *config.Config, serve bool) zerolog.Logger {
	logCfg := cfg.Log
	if !serve && (logCfg.Output == "" || logCfg.Output == "stderr" || logCfg.Output == "stdout") {
		if path, err := config.GetLogPath(); err == nil {
			if err := config.EnsureDirs(); err == nil {
				logCfg.Output = path
			}
		}
	}
	return logger.New(logCfg)
}

// startRouters builds a poll loop per configured router and starts them.
func startRouters(cfg *config.Config, mgr *engine.Manager, log zerolog.Logger) error {
	if len(cfg.Routers) == 0 {
		return fmt.Errorf("no routers configured; add a [[routers]] entry to the config")
	}

	var store *creds.FileStore
	for _, rt := range cfg.Routers {
		var username, password string
		if rt.Credentials != "" {
			if store == nil {
				var err error
				store, err = openCredentialStore()
				if err != nil {
					return fmt.Errorf("opening credential store: %w", err)
				}
			}
			p, err := store.Get(rt.Credentials)
			if err != nil {
				return fmt.Errorf("router %q: credentials %q: %w", rt.Name, rt.Credentials, err)
			}
			username, password = p.Username, p.Password
		}

		client := dumaos.NewClient(dumaos.Config{
			Host:      rt.Host,
			VerifyTLS: rt.TLSVerify(),
			Timeout:   rt.RequestTimeout,
			Username:  username,
			Password:  password,
		}, logger.WithComponent(log, "dumaos"))

		var prober engine.StatusProber
		if rt.SNMPCommunity != "" {
			prober = dumaos.NewSNMPProber(rt.Host, rt.SNMPCommunity, rt.RequestTimeout)
		}

		reg := engine.NewRegistry(cfg.MaxHistory)
		pub := engine.NewPublisher(rt.Name)
		coord := engine.NewCoordinator(engine.Config{
			Name:         rt.Name,
			Host:         rt.Host,
			Fetcher:      client,
			StatusProber: prober,
			Registry:     reg,
			Publisher:    pub,
			Logger:       logger.WithComponent(log, "poller"),
		})

		if err := mgr.Start(&engine.Router{
			Name:        rt.Name,
			Coordinator: coord,
			Publisher:   pub,
			Interval:    rt.PollInterval,
		}); err != nil {
			return err
		}
	}
	return nil
}

// openCredentialStore opens the store, trying a no-password vault first
// and falling back to DUMAMON_MASTER_KEY or an interactive prompt.
func openCredentialStore() (*creds.FileStore, error) {
	storePath, err := config.GetCredentialStorePath()
	if err != nil {
		return nil, err
	}
	if err := config.EnsureDirs(); err != nil {
		return nil, err
	}

	store, err := creds.NewFileStore(storePath, []byte(""))
	if err == nil {
		return store, nil
	}

	password := []byte(os.Getenv("DUMAMON_MASTER_KEY"))
	if len(password) == 0 {
		fmt.Fprint(os.Stderr, "Master password: ")
		password, err = term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, err
		}
	}
	return creds.NewFileStore(storePath, password)
}

// runServe runs the headless mode: poll loops plus the HTTP API, until
// SIGINT or SIGTERM.
func runServe(cfg *config.Config, mgr *engine.Manager, log zerolog.Logger) {
	srv := web.NewServer(cfg.ListenAddr, mgr, logger.WithComponent(log, "web"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("web server failed")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("web server shutdown")
	}
	mgr.StopAll()
}
