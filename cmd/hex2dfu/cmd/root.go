package cmd

import (
	"log/slog"
	"os"

	"github.com/anupcshan/hex2dfu/convert"
	"github.com/anupcshan/hex2dfu/dfu"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// appFs is the filesystem every subcommand reads and writes through.
var appFs = afero.NewOsFs()

var rootCmd = &cobra.Command{
	Use:   "hex2dfu [flags] <input_ihex> <output_dfu>",
	Short: "Convert Intel HEX firmware into a DFU image for the PIC16F1454 bootloader",
	Long: `hex2dfu turns an application built for the PIC16F1454 USB DFU bootloader into
a file that dfu-util can flash.

The application is laid out in program memory starting at word 0x200, the
bootloader's CRC-14 is stored in the word below the high-endurance flash, and a
16 byte DFU suffix with a CRC-32 is appended.

When the input cannot be converted the reason is printed as "ERROR: ..." and no
output file is written. The exit status is still 0 unless --strict is given.

Example:
  hex2dfu app.hex app.dfu
  hex2dfu --vid 0x04D8 --pid 0x000B app.hex app.dfu`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	os.Exit(exitCode(rootCmd.Execute()))
}

// exitCode maps a command error to the process exit status: 2 when the input
// was rejected, 1 for anything else.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case convert.IsValidationError(err):
		return 2
	default:
		return 1
	}
}

func init() {
	rootCmd.PersistentFlags().Uint16("vid", dfu.DefaultVendorID, "USB vendor ID for the DFU suffix (accepts 0x prefix)")
	rootCmd.PersistentFlags().Uint16("pid", dfu.DefaultProductID, "USB product ID for the DFU suffix (accepts 0x prefix)")
	rootCmd.PersistentFlags().Bool("strict", false, "Reject malformed Intel HEX and exit non-zero when the input is rejected")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log parse and checksum details")

	rootCmd.Flags().String("metrics-file", "", "Write conversion metrics to this file in Prometheus text format")

	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(exportHexCmd)
	rootCmd.AddCommand(binCmd)
	rootCmd.AddCommand(checksumCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	inputFile, outputFile := args[0], args[1]
	metricsFile, _ := cmd.Flags().GetString("metrics-file")

	logger := newLogger(cmd)
	res, err := newConverter(cmd, logger).ConvertFile(appFs, inputFile, outputFile)

	if metricsFile != "" {
		if merr := writeMetrics(metricsFile, res, err); merr != nil {
			logger.Warn("unable to write metrics", "path", metricsFile, "err", merr)
		}
	}

	return reportRejection(cmd, err)
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")

	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	if verbose {
		level.Set(slog.LevelDebug)
	}

	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func newConverter(cmd *cobra.Command, logger *slog.Logger) *convert.Converter {
	vid, _ := cmd.Flags().GetUint16("vid")
	pid, _ := cmd.Flags().GetUint16("pid")
	strict, _ := cmd.Flags().GetBool("strict")

	return convert.New(
		convert.WithVendorID(vid),
		convert.WithProductID(pid),
		convert.WithStrict(strict),
		convert.WithLogger(logger),
	)
}

// reportRejection prints a rejected input as "ERROR: <reason>" and swallows
// the error unless --strict is set. Other errors are returned as is.
func reportRejection(cmd *cobra.Command, err error) error {
	if err == nil || !convert.IsValidationError(err) {
		return err
	}

	cmd.PrintErrln("ERROR:", err)

	if strict, _ := cmd.Flags().GetBool("strict"); strict {
		cmd.SilenceErrors = true
		return err
	}
	return nil
}
