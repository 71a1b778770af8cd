package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"

	"github.com/dpearce/leechbit"
	"github.com/dpearce/leechbit/internal"
	"github.com/spf13/cobra"
)

var destination string

var downloadCmd = &cobra.Command{
	Use:   "download <torrent-file>",
	Short: "Download a single-file torrent from the first peer the tracker offers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		meta, err := loadMetainfo(args[0])
		if err != nil {
			return err
		}
		if destination == "" {
			destination = meta.Name()
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		opts := leechbit.DownloadOptions{
			Destination: destination,
			LocalPeerID: leechbit.RandPeerID(),
			LocalPort:   localPort,
			Progress: func(piece, total int) {
				fmt.Printf("\rpiece %d/%d", piece, total)
			},
		}
		if debugTrace {
			opts.Trace = func(c net.Conn) net.Conn { return internal.NewEavesdropper(c, 0) }
		}

		if err := leechbit.Download(ctx, meta, opts); err != nil {
			return err
		}
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	downloadCmd.Flags().StringVarP(&destination, "output", "o", "", "output file path (defaults to the torrent's declared name)")
	downloadCmd.Flags().IntVar(&localPort, "port", 6881, "local port advertised to the tracker")
}
