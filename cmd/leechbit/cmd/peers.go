package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dpearce/leechbit"
	"github.com/spf13/cobra"
)

var peersCmd = &cobra.Command{
	Use:   "peers <torrent-file>",
	Short: "Announce to the tracker and print the peers it returns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		meta, err := loadMetainfo(args[0])
		if err != nil {
			return err
		}

		tc := leechbit.NewTrackerClient(http.DefaultClient, meta, leechbit.RandPeerID(), localPort)
		peerList, err := tc.Announce(context.Background())
		if err != nil {
			return fmt.Errorf("announcing to tracker: %w", err)
		}
		for _, p := range peerList {
			fmt.Println(p.String())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(peersCmd)
	peersCmd.Flags().IntVar(&localPort, "port", 6881, "local port advertised to the tracker")
}
