// Command goparser is the Go parser module. Built with GOOS=wasip1
// GOARCH=wasm -buildmode=c-shared it is a reactor exporting alloc, dealloc
// and parseJson for the linear calling convention, so the Go runtime boots
// once at load instead of on every call. Built natively it reads the input
// from stdin and writes the result to stdout.
package main

import (
	"fmt"
	"io"

	"github.com/weiihann/wasmbench/carparse"
)

// errorFlag marks a packed result whose bytes are an error message.
const errorFlag = 1 << 31

// respond runs entryPoint on input. A failure comes back as the error text
// with failed set, so the host can report it without the guest trapping.
func respond(entryPoint, input string) (out []byte, failed bool) {
	res, err := carparse.Dispatch(entryPoint, input)
	if err != nil {
		return []byte(err.Error()), true
	}

	return []byte(res), false
}

// pack encodes a result buffer address the way the host unpacks it.
func pack(ptr uint32, size int, failed bool) uint64 {
	packed := uint64(ptr)<<32 | uint64(uint32(size))
	if failed {
		packed |= errorFlag
	}

	return packed
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	entryPoint := carparse.EntryParseJSON
	if len(args) > 1 {
		entryPoint = args[1]
	}

	input, err := io.ReadAll(stdin)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}

	out, failed := respond(entryPoint, string(input))
	if failed {
		return fmt.Errorf("%s", out)
	}

	_, err = stdout.Write(out)

	return err
}
