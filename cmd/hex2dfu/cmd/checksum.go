package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var checksumCmd = &cobra.Command{
	Use:   "checksum <input_ihex>",
	Short: "Print the checksums a conversion would produce",
	Long: `Convert an Intel HEX file in memory and print the bootloader CRC-14 and the DFU
suffix CRC-32 without writing anything.

Example:
  hex2dfu checksum --vid 0x04D8 --pid 0x000B app.hex`,
	Args: cobra.ExactArgs(1),
	RunE: runChecksum,
}

func runChecksum(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	f, err := appFs.Open(args[0])
	if err != nil {
		return errors.Wrapf(err, "unable to open input file %s", args[0])
	}
	defer f.Close()

	res, err := newConverter(cmd, newLogger(cmd)).Convert(f)
	if err != nil {
		return reportRejection(cmd, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: crc14=0x%04X crc32=0x%08X programmed=%d\n",
		args[0], res.CRC14, res.Suffix.CRC, res.Image.Programmed())

	return nil
}
