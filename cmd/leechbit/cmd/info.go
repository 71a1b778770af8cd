package cmd

import (
	"fmt"
	"os"

	"github.com/dpearce/leechbit"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <torrent-file>",
	Short: "Print the metainfo of a single-file torrent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		meta, err := loadMetainfo(args[0])
		if err != nil {
			return err
		}
		fmt.Println("name:        ", meta.Name())
		fmt.Println("tracker:     ", meta.TrackerURL().String())
		fmt.Println("info hash:   ", meta.InfoHashHex())
		fmt.Println("length:      ", humanize.Bytes(uint64(meta.TotalLength())))
		fmt.Println("piece length:", humanize.Bytes(uint64(meta.PieceLength())))
		fmt.Println("pieces:      ", meta.NumPieces())
		return nil
	},
}

func loadMetainfo(path string) (leechbit.Metainfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return leechbit.Metainfo{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	meta, err := leechbit.ParseMetainfo(f)
	if err != nil {
		return leechbit.Metainfo{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return meta, nil
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
