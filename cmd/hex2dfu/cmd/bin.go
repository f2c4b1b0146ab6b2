package cmd

import (
	"github.com/spf13/cobra"
)

var binCmd = &cobra.Command{
	Use:   "bin <input_ihex> <output_bin>",
	Short: "Write the checksummed program memory as a raw binary",
	Long: `Run the same conversion as the root command, but write the 16384 byte program
memory image without a DFU suffix. Unprogrammed words read 0x3FFF.

Example:
  hex2dfu bin app.hex app.bin`,
	Args: cobra.ExactArgs(2),
	RunE: runBin,
}

func runBin(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	_, err := newConverter(cmd, newLogger(cmd)).BinaryFile(appFs, args[0], args[1])
	return reportRejection(cmd, err)
}
