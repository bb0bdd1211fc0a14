package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/jordanhubbard/statshub/internal/dashboard"
	"github.com/jordanhubbard/statshub/internal/providers"
)

var version = "dev"

var httpClient = &http.Client{Timeout: 30 * time.Second}

// loadEnvFile reads ~/.statshub/env and sets any variables not already
// present, so statshubctl works without shell profile configuration.
func loadEnvFile() {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	if err := godotenv.Load(filepath.Join(home, ".statshub", "env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
}

func main() {
	loadEnvFile()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usageTo(stderr)
		return 1
	}

	var err error
	switch args[0] {
	case "version", "--version", "-v":
		_, _ = fmt.Fprintf(stdout, "statshubctl %s\n", version)
	case "dashboard":
		err = doDashboard(stdout)
	case "health":
		err = doHealth(stdout)
	case "status":
		err = doStatus(stdout)
	case "help", "--help", "-h":
		usageTo(stdout)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command: %s\n\n", args[0])
		usageTo(stderr)
		return 1
	}
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func usageTo(w io.Writer) {
	_, _ = fmt.Fprintf(w, `statshubctl: CLI for the statshub API

Usage: statshubctl <command>

Environment:
  STATSHUB_URL          Base URL (default: http://localhost:8080)

  ~/.statshub/env       Auto-sourced on startup.
                        Explicit environment variables take precedence.

Commands:
  dashboard             Fetch all stats and render the dashboard
  status                Show liveness and which endpoints are configured
  health                Show upstream provider health
  version               Print the version
`)
}

func baseURL() string {
	if u := os.Getenv("STATSHUB_URL"); u != "" {
		return strings.TrimRight(u, "/")
	}
	return "http://localhost:8080"
}

func doGet(path string, out any) error {
	ctx, cancel := context.WithTimeout(context.Background(), httpClient.Timeout)
	defer cancel()
	return providers.GetJSON(ctx, httpClient, baseURL()+path, nil, out)
}

// --- Commands ---

func doDashboard(w io.Writer) error {
	snap := dashboard.NewPoller(baseURL(), dashboard.WithHTTPClient(httpClient)).Fetch(context.Background())
	_, _ = fmt.Fprintln(w, dashboard.Render(snap))
	return snap.Err
}

func doStatus(w io.Writer) error {
	var data struct {
		Status     string          `json:"status"`
		Configured map[string]bool `json:"configured"`
	}
	if err := doGet("/healthz", &data); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "Status: %s\n", data.Status)
	for _, ep := range []string{"activity", "coding", "traffic"} {
		mark := "missing credentials"
		if data.Configured[ep] {
			mark = "configured"
		}
		_, _ = fmt.Fprintf(w, "  %-10s %s\n", ep, mark)
	}
	return nil
}

func doHealth(w io.Writer) error {
	var data map[string]any
	if err := doGet("/admin/v1/health", &data); err != nil {
		return err
	}
	rows, _ := data["providers"].([]any)
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "No provider health data available.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "PROVIDER\tSTATE\tREQUESTS\tERROR RATE\tAVG LATENCY\tLAST SUCCESS\tLAST ERROR")
	for _, p := range rows {
		m, ok := p.(map[string]any)
		if !ok {
			continue
		}
		id, _ := m["provider"].(string)
		state, _ := m["state"].(string)
		lastErr, _ := m["last_error"].(string)
		if len(lastErr) > 60 {
			lastErr = lastErr[:57] + "..."
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			id, state, fmtNum(m["total_requests"]), fmtPercent(m["error_rate"]),
			fmtDuration(m["avg_latency_ms"]), fmtTime(m["last_success_at"]), lastErr)
	}
	return tw.Flush()
}

// --- Formatting helpers ---

func fmtNum(v any) string {
	if v == nil {
		return "-"
	}
	switch n := v.(type) {
	case float64:
		if n == float64(int(n)) {
			return strconv.Itoa(int(n))
		}
		return strconv.FormatFloat(n, 'f', 2, 64)
	case int:
		return strconv.Itoa(n)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func fmtPercent(v any) string {
	f, ok := v.(float64)
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", f*100)
}

func fmtDuration(v any) string {
	if v == nil {
		return "-"
	}
	if f, ok := v.(float64); ok {
		if f < 1000 {
			return fmt.Sprintf("%.0fms", f)
		}
		return fmt.Sprintf("%.1fs", f/1000)
	}
	return fmt.Sprintf("%v", v)
}

func fmtTime(v any) string {
	s, ok := v.(string)
	if !ok || s == "" {
		return "-"
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.Local().Format("2006-01-02 15:04:05")
	}
	return s
}
