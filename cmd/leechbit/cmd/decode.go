package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/dpearce/leechbit/bencoding"
	"github.com/spf13/cobra"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <bencoded-string>",
	Short: "Decode a bencoded string and print it as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		decoded, err := bencoding.Decode([]byte(args[0]))
		if err != nil {
			return fmt.Errorf("decoding %q: %w", args[0], err)
		}

		out, err := json.MarshalIndent(decoded, "", "  ")
		if err != nil {
			return fmt.Errorf("rendering JSON: %w", err)
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}
