//go:build wasip1

package main

import (
	"unsafe"

	"github.com/weiihann/wasmbench/carparse"
)

// live keeps every buffer handed to the host reachable until dealloc.
var live = map[uint32][]byte{}

func main() {}

func pin(buf []byte) uint32 {
	ptr := uint32(uintptr(unsafe.Pointer(unsafe.SliceData(buf))))
	live[ptr] = buf

	return ptr
}

//go:wasmexport alloc
func alloc(size uint32) uint32 {
	return pin(make([]byte, size, max(size, 1)))
}

//go:wasmexport dealloc
func dealloc(ptr, _ uint32) {
	delete(live, ptr)
}

//go:wasmexport parseJson
func parseJSON(ptr, size uint32) uint64 {
	input := unsafe.String((*byte)(unsafe.Pointer(uintptr(ptr))), size)

	out, failed := respond(carparse.EntryParseJSON, input)
	if len(out) == 0 {
		out = make([]byte, 0, 1)
	}

	return pack(pin(out), len(out), failed)
}
