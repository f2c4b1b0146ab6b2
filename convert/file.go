package convert

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// ConvertFile converts the Intel HEX file in into a DFU file at out. The
// output is only written once the conversion succeeded; a validation failure
// leaves out untouched.
func (c *Converter) ConvertFile(fs afero.Fs, in, out string) (*Result, error) {
	return c.convertFile(fs, in, out, "DFU image", func(res *Result) ([]byte, error) {
		return res.Output, nil
	})
}

// ExportHexFile runs the same conversion as ConvertFile but writes the
// checksummed program memory to out as Intel HEX instead of a DFU file.
func (c *Converter) ExportHexFile(fs afero.Fs, in, out string) (*Result, error) {
	return c.convertFile(fs, in, out, "intel hex", func(res *Result) ([]byte, error) {
		var buf bytes.Buffer
		if err := ExportHex(res.Image, &buf); err != nil {
			return nil, errors.Wrap(err, "failed to encode intel hex")
		}
		return buf.Bytes(), nil
	})
}

// BinaryFile runs the same conversion as ConvertFile but writes the raw
// program memory, CRC-14 included and without a DFU suffix.
func (c *Converter) BinaryFile(fs afero.Fs, in, out string) (*Result, error) {
	return c.convertFile(fs, in, out, "program memory", func(res *Result) ([]byte, error) {
		return res.Image.Bytes(), nil
	})
}

func (c *Converter) convertFile(fs afero.Fs, in, out, kind string, encode func(*Result) ([]byte, error)) (*Result, error) {
	f, err := fs.Open(in)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open input file %s", in)
	}
	defer f.Close()

	res, err := c.Convert(f)
	if err != nil {
		if IsValidationError(err) {
			return res, err
		}
		return res, errors.Wrap(err, in)
	}

	data, err := encode(res)
	if err != nil {
		return res, err
	}

	if err := atomicWriteFile(fs, out, data, 0644); err != nil {
		return res, errors.Wrapf(err, "unable to open output file %s", out)
	}

	c.cfg.Logger.Info("wrote "+kind, "input", in, "output", out, "bytes", len(data))

	return res, nil
}

// atomicWriteFile writes data to a file atomically using a temp file in the same directory.
func atomicWriteFile(fs afero.Fs, path string, data []byte, perm os.FileMode) error {
	tmp, err := afero.TempFile(fs, filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		fs.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		fs.Remove(tmpName)
		return err
	}
	if err := fs.Chmod(tmpName, perm); err != nil {
		fs.Remove(tmpName)
		return err
	}
	if err := fs.Rename(tmpName, path); err != nil {
		fs.Remove(tmpName)
		return err
	}
	return nil
}
