package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kjannette/cryptopulse/internal/config"
	"github.com/kjannette/cryptopulse/internal/dashboard"
	"github.com/kjannette/cryptopulse/internal/logging"
	"github.com/kjannette/cryptopulse/internal/models"
)

const exportFile = "crypto-prices.csv"

const usage = `commands:
  f <asset>  toggle favorite (e.g. "f btc")
  d          toggle dark mode
  x          export snapshot to ` + exportFile + `
  q          quit
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	session := dashboard.NewSession(cfg.AssetKeys(), cfg.ChartAsset(), cfg.HistoryLimit)
	client := dashboard.NewClient(cfg.ServerURL, cfg.UpstreamTimeout)
	poller := dashboard.NewPoller(client, session, cfg.PollInterval, log)
	poller.OnUpdate = func() {
		dashboard.Render(os.Stdout, session.View())
	}

	fmt.Printf("CryptoPulse dashboard, polling %s every %s\n", cfg.ServerURL, cfg.PollInterval)
	fmt.Print(usage)

	poller.Start()
	defer poller.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := handleCommand(session, line); quit {
				return
			}
		}
	}
}

func handleCommand(session *dashboard.Session, line string) bool {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "f":
		if len(fields) < 2 {
			fmt.Println("usage: f <asset>")
			return false
		}
		session.ToggleFavorite(models.AssetKey(fields[1]))
		dashboard.Render(os.Stdout, session.View())
	case "d":
		session.ToggleDarkMode()
		dashboard.Render(os.Stdout, session.View())
	case "x":
		// Writing the file is the collaborator side of the export; the
		// CSV text itself comes from the session.
		if err := os.WriteFile(exportFile, []byte(session.ExportCSV()+"\n"), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
			return false
		}
		fmt.Printf("snapshot exported to %s\n", exportFile)
	case "q":
		return true
	default:
		fmt.Print(usage)
	}
	return false
}
