package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"dumamon/internal/dumaos"
	"dumamon/internal/logger"
)

func checkCmd(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	credsName := fs.String("creds", "", "Credential profile to authenticate with")
	insecure := fs.Bool("insecure", false, "Skip TLS certificate verification")
	timeout := fs.Duration("timeout", 10*time.Second, "Per-request timeout")
	leases := fs.Bool("leases", false, "Also print the router's DHCP leases")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: dumamon check [--creds NAME] [--insecure] [--timeout DUR] [--leases] HOST")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: HOST argument is required")
		fs.Usage()
		os.Exit(1)
	}

	host := fs.Arg(0)

	cfg := dumaos.Config{
		Host:      host,
		VerifyTLS: !*insecure,
		Timeout:   *timeout,
	}
	if *credsName != "" {
		store := openStore()
		p, err := store.Get(*credsName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg.Username = p.Username
		cfg.Password = p.Password
	}

	client := dumaos.NewClient(cfg, logger.New(logger.Config{Level: "warn"}))

	ctx, cancel := context.WithTimeout(context.Background(), 3*(*timeout))
	defer cancel()

	fmt.Fprintf(os.Stderr, "Polling %s...\n", host)

	info, err := client.SystemInfo(ctx)
	if err != nil {
		if dumaos.IsKind(err, dumaos.ErrHTTPStatus) && *credsName == "" {
			fmt.Fprintln(os.Stderr, "Router refused the request; it may require credentials (--creds NAME).")
		}
		fmt.Fprintf(os.Stderr, "Error fetching system info: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Firmware: %s\n", info.Firmware)
	if info.Board != "" {
		fmt.Printf("Board:    %s\n", info.Board)
	}
	fmt.Printf("Uptime:   %s\n\n", formatUptime(info.UptimeSeconds))

	devices, err := client.DeviceList(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching devices: %v\n", err)
		os.Exit(1)
	}

	traffic, err := client.Traffic(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching traffic counters: %v\n", err)
		os.Exit(1)
	}

	printDevices(devices, traffic)

	if *leases {
		dhcp, err := client.DHCPLeases(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching DHCP leases: %v\n", err)
			os.Exit(1)
		}
		fmt.Println()
		printLeases(dhcp)
	}
}

func printDevices(devices []dumaos.DeviceEntry, traffic map[string]dumaos.Counters) {
	if len(devices) == 0 {
		fmt.Println("No devices reported.")
		return
	}

	sort.Slice(devices, func(i, j int) bool {
		return devices[i].ID < devices[j].ID
	})

	online := 0
	for _, d := range devices {
		if d.Online {
			online++
		}
	}

	fmt.Printf("Found %d devices (%d online):\n\n", len(devices), online)
	fmt.Printf("%-6s  %-7s  %-24s  %-17s  %12s  %12s\n", "ID", "Status", "Name", "MAC", "RX total", "TX total")
	fmt.Printf("%-6s  %-7s  %-24s  %-17s  %12s  %12s\n", "--", "------", "----", "---", "--------", "--------")

	for _, d := range devices {
		status := "offline"
		if d.Online {
			status = "online"
		}
		mac := ""
		if len(d.MACs) > 0 {
			mac = d.MACs[0]
		}
		rx, tx := "", ""
		if c, ok := traffic[d.ID]; ok {
			rx = formatBytes(c.RxBytes)
			tx = formatBytes(c.TxBytes)
		}
		fmt.Printf("%-6s  %-7s  %-24s  %-17s  %12s  %12s\n",
			d.ID, status, truncate(d.Name, 24), mac, rx, tx)
	}
}

func printLeases(leases []dumaos.Lease) {
	if len(leases) == 0 {
		fmt.Println("No DHCP leases reported.")
		return
	}

	fmt.Printf("DHCP leases (%d):\n\n", len(leases))
	fmt.Printf("%-17s  %-15s  %s\n", "MAC", "IP", "Hostname")
	for _, l := range leases {
		fmt.Printf("%-17s  %-15s  %s\n", l.MAC, l.IP, l.Hostname)
	}
}

// formatUptime renders a seconds count as "3d 4h 12m".
func formatUptime(seconds int64) string {
	if seconds <= 0 {
		return "unknown"
	}
	d := seconds / 86400
	h := (seconds % 86400) / 3600
	m := (seconds % 3600) / 60

	var parts []string
	if d > 0 {
		parts = append(parts, fmt.Sprintf("%dd", d))
	}
	if h > 0 || d > 0 {
		parts = append(parts, fmt.Sprintf("%dh", h))
	}
	parts = append(parts, fmt.Sprintf("%dm", m))
	return strings.Join(parts, " ")
}

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(n uint64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1f GiB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// truncate shortens a string to the given max length, adding "..." if needed.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
