// Package cmd implements the leechbit command-line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	debugTrace bool
	localPort  int
)

var rootCmd = &cobra.Command{
	Use:   "leechbit",
	Short: "A minimal BitTorrent v1 single-file download client",
	Long: `leechbit decodes bencoded data, inspects .torrent metainfo,
announces to a tracker, and downloads a single-file torrent from one
peer at a time.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command, printing any returned error as a
// single line to stderr and exiting 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugTrace, "debug", false, "log every raw byte exchanged with the peer")
}
