package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hamed0406/sitewatch/internal/domain"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show the recent alert log, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var as []domain.Alert
		if err := clientFrom(cmd).do(cmd.Context(), http.MethodGet, "/api/alerts", nil, &as); err != nil {
			return err
		}
		if len(as) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No alerts.")
			return nil
		}
		for _, a := range as {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", a.Timestamp.Local().Format(time.DateTime), a.Message)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize sites by status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		path := "/api/stats"
		if category != "" {
			path += "?category=" + url.QueryEscape(category)
		}
		var st domain.Stats
		if err := clientFrom(cmd).do(cmd.Context(), http.MethodGet, path, nil, &st); err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "Total:\t%d\n", st.Total)
		fmt.Fprintf(tw, "Online:\t%d\n", st.Online)
		fmt.Fprintf(tw, "Offline:\t%d\n", st.Offline)
		fmt.Fprintf(tw, "Avg uptime:\t%d%%\n", st.AvgUptime)
		return tw.Flush()
	},
}

type intervalBody struct {
	IntervalSeconds int   `json:"interval_seconds"`
	Allowed         []int `json:"allowed,omitempty"`
}

var intervalCmd = &cobra.Command{
	Use:   "interval [seconds]",
	Short: "Show or change the check interval",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := clientFrom(cmd)
		if len(args) == 0 {
			var iv intervalBody
			if err := c.do(cmd.Context(), http.MethodGet, "/api/settings/interval", nil, &iv); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Checking every %s (allowed seconds: %v)\n",
				time.Duration(iv.IntervalSeconds)*time.Second, iv.Allowed)
			return nil
		}
		secs, err := strconv.Atoi(args[0])
		if err != nil || secs <= 0 {
			return fmt.Errorf("interval must be a positive number of seconds")
		}
		if err := c.do(cmd.Context(), http.MethodPut, "/api/settings/interval", intervalBody{IntervalSeconds: secs}, nil); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Interval set to %s\n", time.Duration(secs)*time.Second)
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a check of every active site now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := clientFrom(cmd).do(cmd.Context(), http.MethodPost, "/api/checks/run", nil, nil); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Check requested.")
		return nil
	},
}

func init() {
	statsCmd.Flags().String("category", "", "only count this category")
	rootCmd.AddCommand(alertsCmd, statsCmd, intervalCmd, checkCmd)
}
