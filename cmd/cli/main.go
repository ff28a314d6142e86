// Package main is a command-line client for the sitewatch API.
//
// Usage:
//
//	sitewatch add example.com --category clientes
//	sitewatch list
//	sitewatch pause <id>
//	sitewatch interval 60
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sitewatch",
	Short: "Manage monitored websites through the sitewatch API",
	Long: `sitewatch talks to a running sitewatch API server.

The server address comes from --api or SITEWATCH_URL (default
http://localhost:8080); the key from --key or SITEWATCH_API_KEY.
Read commands accept a public key, write commands need an admin key.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	api := os.Getenv("SITEWATCH_URL")
	if api == "" {
		api = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().String("api", api, "API base URL")
	rootCmd.PersistentFlags().String("key", os.Getenv("SITEWATCH_API_KEY"), "API key")
}

func clientFrom(cmd *cobra.Command) *client {
	api, _ := cmd.Flags().GetString("api")
	key, _ := cmd.Flags().GetString("key")
	return newClient(api, key)
}
