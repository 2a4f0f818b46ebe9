package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gilchrisn/graph-motif-service/pkg/motif"
)

var decodeSize int

var decodeCmd = &cobra.Command{
	Use:   "decode ID [ID...]",
	Short: "Print the adjacency matrix of motif ids",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		size := decodeSize
		if size <= 0 {
			size = cfg.MotifSize()
		}
		out := cmd.OutOrStdout()
		for _, arg := range args {
			id, err := motif.ParseID(arg)
			if err != nil {
				return err
			}
			adj, err := motif.Decode(id, size)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "motif %s (size %d)\n", id, size)
			for i := 0; i < size; i++ {
				for j := 0; j < size; j++ {
					fmt.Fprintf(out, " %.0f", adj.At(i, j))
				}
				fmt.Fprintln(out)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().IntVar(&decodeSize, "size", 0, "Motif size (default pipeline.motif_size)")
}
