package cmd

import (
	"github.com/spf13/cobra"
)

var exportHexCmd = &cobra.Command{
	Use:   "export-hex <input_ihex> <output_ihex>",
	Short: "Write the checksummed application back out as Intel HEX",
	Long: `Run the same conversion as the root command, but write program memory as Intel
HEX instead of a DFU image. The output carries the bootloader CRC-14 at 0x3EFE,
so it can be programmed with an ICSP programmer alongside the bootloader.

Example:
  hex2dfu export-hex app.hex app-with-crc.hex`,
	Args: cobra.ExactArgs(2),
	RunE: runExportHex,
}

func runExportHex(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	_, err := newConverter(cmd, newLogger(cmd)).ExportHexFile(appFs, args[0], args[1])
	return reportRejection(cmd, err)
}
