package cmd

import (
	"fmt"
	"runtime"

	"github.com/anupcshan/hex2dfu/convert"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <dfu_file>...",
	Short: "Check DFU images produced by hex2dfu",
	Long: `Check the DFU suffix CRC-32 and the bootloader CRC-14 of one or more DFU
images. One line is printed per file; the command fails if any file does not
verify.

Example:
  hex2dfu verify build/*.dfu`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

type verifyReport struct {
	path   string
	result *convert.Verification
	err    error
}

func runVerify(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	reports := make([]verifyReport, len(args))

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, path := range args {
		i, path := i, path
		g.Go(func() error {
			data, err := afero.ReadFile(appFs, path)
			if err != nil {
				return errors.Wrapf(err, "unable to open input file %s", path)
			}
			res, err := convert.VerifyImage(data)
			reports[i] = verifyReport{path: path, result: res, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for _, r := range reports {
		if r.err != nil {
			failed++
			fmt.Fprintf(cmd.OutOrStdout(), "%s: FAIL %v\n", r.path, r.err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: OK vid=0x%04X pid=0x%04X crc14=0x%04X crc32=0x%08X\n",
			r.path, r.result.Suffix.Vendor, r.result.Suffix.Product, r.result.CRC14, r.result.Suffix.CRC)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed verification", failed, len(reports))
	}
	return nil
}
