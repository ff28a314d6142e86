// cmd/preflight/main.go
package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/hamed0406/sitewatch/internal/config"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		fail(err.Error())
	}
	ok(fmt.Sprintf("checking every %s, probe timeout %s", cfg.CheckInterval, cfg.ProbeTimeout))

	if len(cfg.AdminAPIKeys) == 0 {
		warn("ADMIN_API_KEYS is empty; admin routes are open to anyone who can reach the API.")
	}
	if len(cfg.PublicAPIKeys) == 0 && len(cfg.AdminAPIKeys) == 0 {
		warn("PUBLIC_API_KEYS and ADMIN_API_KEYS are empty; read routes are open.")
	}
	// Normalize and sanity-check lists (no spaces around commas).
	for _, name := range []string{"ADMIN_API_KEYS", "PUBLIC_API_KEYS"} {
		if strings.Contains(strings.TrimSpace(os.Getenv(name)), " ") {
			warn(name + " contains spaces; use comma-separated with no spaces, e.g. key1,key2")
		}
	}

	ok("API_ADDR=" + cfg.Addr)

	switch {
	case cfg.DatabaseURL != "":
		if _, err := url.Parse(cfg.DatabaseURL); err != nil {
			fail("DATABASE_URL is not a valid URL: " + err.Error())
		}
		ok("storage: postgres (DATABASE_URL present)")
	case cfg.SQLitePath != "":
		checkDir(cfg.SQLitePath, fail)
		ok("storage: sqlite at " + cfg.SQLitePath)
	default:
		checkDir(cfg.StateFile, fail)
		ok("storage: YAML state file at " + cfg.StateFile)
	}

	if cfg.SeedFile != "" {
		seeds, err := config.LoadSeeds(cfg.SeedFile)
		if err != nil {
			fail("SEED_FILE: " + err.Error())
		}
		ok(fmt.Sprintf("SEED_FILE has %d targets", len(seeds)))
	} else {
		warn("SEED_FILE empty; a fresh install starts with no targets.")
	}

	if cfg.ProxyURL != "" {
		if u, err := url.Parse(cfg.ProxyURL); err != nil || u.Host == "" {
			fail("PROXY_URL is not an absolute URL")
		}
		ok("probing through proxy " + cfg.ProxyURL)
	}

	if cfg.SlackWebhookURL == "" && cfg.AlertWebhookURL == "" {
		warn("no SLACK_WEBHOOK_URL or ALERT_WEBHOOK_URL; failure alerts only reach the log.")
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		warn("ALLOWED_ORIGINS is *; any site may call the API from a browser.")
	} else {
		ok("ALLOWED_ORIGINS=" + strings.Join(cfg.AllowedOrigins, ","))
	}

	ok("preflight passed")
}

// checkDir fails when the parent directory of path is missing.
func checkDir(path string, fail func(string)) {
	dir := filepath.Dir(path)
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		fail("directory " + dir + " does not exist")
	}
}
