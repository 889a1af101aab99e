// Command dcl compresses and decompresses streams in the PKWare Data
// Compression Library "implode"/"explode" format.
package main

import (
	"hash/crc32"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v2"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/anthropic-exercises/dcl"
)

// Exit codes, per the CLI's documented contract: 0 success, 1 I/O error,
// 2 format error (bad header or corrupt stream), 3 usage error.
const (
	exitSuccess     = 0
	exitIOError     = 1
	exitFormatError = 2
	exitUsageError  = 3
)

var (
	flagMode     string
	flagDictSize string
	flagForce    bool
)

func main() {
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})

	root := &cobra.Command{
		Use:           "dcl",
		Short:         "Compress and decompress PKWare DCL (implode/explode) streams",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	compressCmd := &cobra.Command{
		Use:   "compress <input> <output>",
		Short: "Implode a file",
		Args:  cobra.ExactArgs(2),
		RunE:  runCompress,
	}
	compressCmd.Flags().StringVar(&flagMode, "mode", "binary", "literal mode: binary or ascii")
	compressCmd.Flags().StringVar(&flagDictSize, "dict-size", "4k", "dictionary size: 1k, 2k, or 4k")
	compressCmd.Flags().BoolVar(&flagForce, "force", false, "overwrite an existing output file")

	decompressCmd := &cobra.Command{
		Use:   "decompress <input> <output>",
		Short: "Explode a file",
		Args:  cobra.ExactArgs(2),
		RunE:  runDecompress,
	}
	decompressCmd.Flags().BoolVar(&flagForce, "force", false, "overwrite an existing output file")

	infoCmd := &cobra.Command{
		Use:   "info <file>",
		Short: "Print the header fields and decompressed size of an imploded file",
		Args:  cobra.ExactArgs(1),
		RunE:  runInfo,
	}

	root.AddCommand(compressCmd, decompressCmd, infoCmd)

	if err := root.Execute(); err != nil {
		log.Error(err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	switch errors.Cause(err).(type) {
	case usageError:
		return exitUsageError
	}
	cause := errors.Cause(err)
	if cause == dcl.ErrHeader || cause == dcl.ErrDictionary ||
		cause == dcl.ErrUnexpectedEOF || cause == dcl.ErrDistanceTooFar ||
		cause == dcl.ErrInvalidLengthCode {
		return exitFormatError
	}
	if _, ok := cause.(*dcl.HeaderError); ok {
		return exitFormatError
	}
	if _, ok := cause.(*dcl.DistanceError); ok {
		return exitFormatError
	}
	if cause == dcl.ErrInvalidMode || cause == dcl.ErrInvalidDictSize {
		return exitUsageError
	}
	return exitIOError
}

// usageError marks an error that should exit with exitUsageError rather
// than being treated as an I/O failure.
type usageError struct{ err error }

func (u usageError) Error() string { return u.err.Error() }
func (u usageError) Unwrap() error { return u.err }

func parseMode(s string) (dcl.Mode, error) {
	switch s {
	case "binary":
		return dcl.Binary, nil
	case "ascii":
		return dcl.ASCII, nil
	default:
		return 0, usageError{errors.Errorf("unknown mode %q (want binary or ascii)", s)}
	}
}

func parseDictSize(s string) (dcl.DictSize, error) {
	switch s {
	case "1k":
		return dcl.DictSize1024, nil
	case "2k":
		return dcl.DictSize2048, nil
	case "4k":
		return dcl.DictSize4096, nil
	default:
		return 0, usageError{errors.Errorf("unknown dict-size %q (want 1k, 2k, or 4k)", s)}
	}
}

func openOutput(path string, force bool) (*os.File, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return nil, usageError{errors.Errorf("%s already exists, use --force to overwrite", path)}
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "creating %s", path)
	}
	return f, nil
}

func runCompress(cmd *cobra.Command, args []string) error {
	inPath, outPath := args[0], args[1]

	mode, err := parseMode(flagMode)
	if err != nil {
		return err
	}
	dictSize, err := parseDictSize(flagDictSize)
	if err != nil {
		return err
	}

	in, err := os.Open(inPath)
	if err != nil {
		return errors.Wrapf(err, "opening %s", inPath)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return errors.Wrapf(err, "stat %s", inPath)
	}

	out, err := openOutput(outPath, flagForce)
	if err != nil {
		return err
	}
	defer out.Close()

	bar := progressbar.NewOptions(int(info.Size()),
		progressbar.OptionSetDescription("compressing"),
		progressbar.OptionClearOnFinish())
	defer bar.Finish()

	w := dcl.NewWriter(out, mode, dictSize)
	if _, err := io.Copy(io.MultiWriter(w, bar), in); err != nil {
		return errors.Wrap(err, "reading input")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "compressing")
	}

	log.WithFields(log.Fields{
		"mode":      flagMode,
		"dict-size": flagDictSize,
		"input":     inPath,
		"output":    outPath,
	}).Info("compressed")
	return nil
}

func runDecompress(cmd *cobra.Command, args []string) error {
	inPath, outPath := args[0], args[1]

	in, err := os.Open(inPath)
	if err != nil {
		return errors.Wrapf(err, "opening %s", inPath)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return errors.Wrapf(err, "stat %s", inPath)
	}

	out, err := openOutput(outPath, flagForce)
	if err != nil {
		return err
	}
	defer out.Close()

	r, err := dcl.NewReader(in)
	if err != nil {
		return errors.Wrap(err, "reading header")
	}
	defer r.Close()

	bar := progressbar.NewOptions(int(info.Size()),
		progressbar.OptionSetDescription("decompressing"),
		progressbar.OptionClearOnFinish())
	defer bar.Finish()

	if _, err := io.Copy(io.MultiWriter(out, bar), r); err != nil {
		return errors.Wrap(err, "decompressing")
	}

	log.WithFields(log.Fields{
		"input":  inPath,
		"output": outPath,
	}).Info("decompressed")
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	path := args[0]

	in, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening %s", path)
	}
	defer in.Close()

	stat, err := in.Stat()
	if err != nil {
		return errors.Wrapf(err, "stat %s", path)
	}

	mode, dictSize, err := dcl.PeekHeader(in)
	if err != nil {
		return errors.Wrap(err, "reading header")
	}

	if _, err := in.Seek(0, io.SeekStart); err != nil {
		return errors.Wrapf(err, "seeking %s", path)
	}
	r, err := dcl.NewReader(in)
	if err != nil {
		return errors.Wrap(err, "decompressing for size check")
	}
	defer r.Close()

	hasher := crc32.NewIEEE()
	decodedSize, err := io.Copy(hasher, r)
	if err != nil {
		return errors.Wrap(err, "decompressing for size check")
	}

	modeName := "binary"
	if mode == dcl.ASCII {
		modeName = "ascii"
	}

	cmd.Printf("mode:             %s\n", modeName)
	cmd.Printf("dictionary size:  %d\n", dictSize)
	cmd.Printf("input size:       %d\n", stat.Size())
	cmd.Printf("decompressed size: %d\n", decodedSize)
	cmd.Printf("decompressed crc32: %08x\n", hasher.Sum32())
	return nil
}
