package main

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hamed0406/sitewatch/internal/domain"
)

var addCmd = &cobra.Command{
	Use:   "add [url]",
	Short: "Start monitoring a site",
	Long: `Register a site. Without an argument the URL is read from stdin.
A missing scheme defaults to https://.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var raw string
		if len(args) == 1 {
			raw = args[0]
		} else {
			fmt.Fprint(cmd.OutOrStdout(), "Enter a site URL to monitor (e.g., https://example.com): ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && err != io.EOF {
				return err
			}
			raw = line
		}
		raw = strings.TrimSpace(raw)
		if !strings.Contains(raw, "://") {
			raw = "https://" + raw
		}
		if _, err := url.ParseRequestURI(raw); err != nil {
			return fmt.Errorf("invalid URL %q", raw)
		}

		name, _ := cmd.Flags().GetString("name")
		category, _ := cmd.Flags().GetString("category")
		var t domain.Target
		err := clientFrom(cmd).do(cmd.Context(), http.MethodPost, "/api/targets",
			map[string]string{"url": raw, "name": name, "category": category}, &t)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s) as %s\n", t.Name, t.URL, t.ID)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List monitored sites",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		path := "/api/targets"
		if category != "" {
			path += "?category=" + url.QueryEscape(category)
		}
		var ts []domain.Target
		if err := clientFrom(cmd).do(cmd.Context(), http.MethodGet, path, nil, &ts); err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tURL\tCATEGORY\tSTATUS\tRT(ms)\tUPTIME")
		for _, t := range ts {
			status := string(t.Status)
			if t.Paused {
				status += " (paused)"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%.1f\n",
				t.ID, t.Name, t.URL, t.Category, status, t.LastResponseTimeMs, t.UptimeScore)
		}
		return tw.Flush()
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a site's name, URL or category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var p domain.TargetPatch
		for _, f := range []struct {
			flag string
			dst  **string
		}{{"name", &p.Name}, {"url", &p.URL}, {"category", &p.Category}} {
			if cmd.Flags().Changed(f.flag) {
				v, _ := cmd.Flags().GetString(f.flag)
				*f.dst = &v
			}
		}
		if p.Name == nil && p.URL == nil && p.Category == nil {
			return fmt.Errorf("nothing to change; pass --name, --url or --category")
		}
		var t domain.Target
		if err := clientFrom(cmd).do(cmd.Context(), http.MethodPatch, "/api/targets/"+args[0], p, &t); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s: %s (%s) [%s]\n", t.ID, t.Name, t.URL, t.Category)
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Stop monitoring a site and drop its history",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := clientFrom(cmd).do(cmd.Context(), http.MethodDelete, "/api/targets/"+args[0], nil, nil); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Removed", args[0])
		return nil
	},
}

func pauseCmd(use, short, action string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var t domain.Target
			path := "/api/targets/" + args[0] + "/" + action
			if err := clientFrom(cmd).do(cmd.Context(), http.MethodPost, path, nil, &t); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: paused=%t status=%s\n", t.Name, t.Paused, t.Status)
			return nil
		},
	}
}

var historyCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show a site's recent checks, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var recs []domain.CheckRecord
		if err := clientFrom(cmd).do(cmd.Context(), http.MethodGet, "/api/targets/"+args[0]+"/history", nil, &recs); err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tSTATUS\tRT(ms)")
		for _, r := range recs {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", r.Timestamp.Local().Format(time.DateTime), r.Status, r.ResponseTimeMs)
		}
		return tw.Flush()
	},
}

func init() {
	addCmd.Flags().String("name", "", "display name (defaults to the host)")
	addCmd.Flags().String("category", "", "category label")
	listCmd.Flags().String("category", "", "only show this category")
	editCmd.Flags().String("name", "", "new display name")
	editCmd.Flags().String("url", "", "new URL")
	editCmd.Flags().String("category", "", "new category")

	rootCmd.AddCommand(addCmd, listCmd, editCmd, removeCmd, historyCmd,
		pauseCmd("pause", "Stop checking a site, keeping its state", "pause"),
		pauseCmd("resume", "Resume checking a paused site", "resume"),
	)
}
