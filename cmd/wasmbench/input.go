package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/weiihann/wasmbench/workload"
)

// inputFlags selects where the benchmark input comes from.
type inputFlags struct {
	text string
	file string
	cars int
	seed int64
}

func (f *inputFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.text, "input", "",
		"Input document given inline")
	flags.StringVarP(&f.file, "file", "f", "",
		"Read the input document from a file")
	flags.IntVar(&f.cars, "cars", 0,
		"Generate a document with this many cars instead of reading one")
	flags.Int64Var(&f.seed, "seed", 0,
		"Random seed for --cars (0 = use current time)")

	cmd.MarkFlagsMutuallyExclusive("input", "file", "cars")
}

// read resolves the input document. Stdin is read when no source flag is
// set and stdin is not a terminal.
func (f *inputFlags) read(cmd *cobra.Command, stdinIsTTY func() bool) (string, error) {
	switch {
	case cmd.Flags().Changed("input"):
		return f.text, nil

	case f.file != "":
		data, err := os.ReadFile(f.file)
		if err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return string(data), nil

	case f.cars > 0:
		seed := f.seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}

		var buf bytes.Buffer
		if _, err := workload.NewGenerator(workload.DefaultConfig(f.cars, seed)).Generate(&buf); err != nil {
			return "", fmt.Errorf("generate input: %w", err)
		}
		return buf.String(), nil
	}

	if stdinIsTTY == nil {
		stdinIsTTY = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
	}

	if stdinIsTTY() {
		return "", errors.New("no input: use --input, --file, --cars or pipe a document on stdin")
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}

	return string(data), nil
}

func stdoutIsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && term.IsTerminal(int(f.Fd()))
}

func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}

	return 80
}
