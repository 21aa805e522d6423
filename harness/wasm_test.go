package harness

// Hand-assembled guest modules for tests.

// linearEchoWasm:
//
//	(module
//	  (memory (export "memory") 1)
//	  (global $heap (mut i32) (i32.const 1024))
//	  (func (export "alloc") (param i32) (result i32)
//	    global.get $heap
//	    global.get $heap
//	    local.get 0
//	    i32.add
//	    global.set $heap)
//	  (func (export "parseJson") (param i32 i32) (result i64)
//	    local.get 0
//	    i64.extend_i32_u
//	    i64.const 32
//	    i64.shl
//	    local.get 1
//	    i64.extend_i32_u
//	    i64.or)
//	  (func (export "fail") (param i32 i32) (result i64)
//	    unreachable))
var linearEchoWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type
	0x01, 0x0c, 0x02,
	0x60, 0x01, 0x7f, 0x01, 0x7f,
	0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7e,
	// function
	0x03, 0x04, 0x03, 0x00, 0x01, 0x01,
	// memory
	0x05, 0x03, 0x01, 0x00, 0x01,
	// global
	0x06, 0x07, 0x01, 0x7f, 0x01, 0x41, 0x80, 0x08, 0x0b,
	// export
	0x07, 0x25, 0x04,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x05, 'a', 'l', 'l', 'o', 'c', 0x00, 0x00,
	0x09, 'p', 'a', 'r', 's', 'e', 'J', 's', 'o', 'n', 0x00, 0x01,
	0x04, 'f', 'a', 'i', 'l', 0x00, 0x02,
	// code
	0x0a, 0x1e, 0x03,
	0x0b, 0x00, 0x23, 0x00, 0x23, 0x00, 0x20, 0x00, 0x6a, 0x24, 0x00, 0x0b,
	0x0c, 0x00, 0x20, 0x00, 0xad, 0x42, 0x20, 0x86, 0x20, 0x01, 0xad, 0x84, 0x0b,
	0x03, 0x00, 0x00, 0x0b,
}

// wasiEchoWasm copies up to 4096 bytes from stdin to stdout:
//
//	(module
//	  (import "wasi_snapshot_preview1" "fd_read" (func (param i32 i32 i32 i32) (result i32)))
//	  (import "wasi_snapshot_preview1" "fd_write" (func (param i32 i32 i32 i32) (result i32)))
//	  (memory (export "memory") 1)
//	  (func (export "_start")
//	    (i32.store (i32.const 0) (i32.const 64))
//	    (i32.store (i32.const 4) (i32.const 4096))
//	    (drop (call 0 (i32.const 0) (i32.const 0) (i32.const 1) (i32.const 16)))
//	    (i32.store (i32.const 32) (i32.const 64))
//	    (i32.store (i32.const 36) (i32.load (i32.const 16)))
//	    (drop (call 1 (i32.const 1) (i32.const 32) (i32.const 1) (i32.const 48)))))
var wasiEchoWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type
	0x01, 0x0c, 0x02,
	0x60, 0x04, 0x7f, 0x7f, 0x7f, 0x7f, 0x01, 0x7f,
	0x60, 0x00, 0x00,
	// import
	0x02, 0x44, 0x02,
	0x16, 'w', 'a', 's', 'i', '_', 's', 'n', 'a', 'p', 's', 'h', 'o', 't', '_', 'p', 'r', 'e', 'v', 'i', 'e', 'w', '1',
	0x07, 'f', 'd', '_', 'r', 'e', 'a', 'd', 0x00, 0x00,
	0x16, 'w', 'a', 's', 'i', '_', 's', 'n', 'a', 'p', 's', 'h', 'o', 't', '_', 'p', 'r', 'e', 'v', 'i', 'e', 'w', '1',
	0x08, 'f', 'd', '_', 'w', 'r', 'i', 't', 'e', 0x00, 0x00,
	// function
	0x03, 0x02, 0x01, 0x01,
	// memory
	0x05, 0x03, 0x01, 0x00, 0x01,
	// export
	0x07, 0x13, 0x02,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x06, '_', 's', 't', 'a', 'r', 't', 0x00, 0x02,
	// code
	0x0a, 0x3c, 0x01,
	0x3a, 0x00,
	0x41, 0x00, 0x41, 0xc0, 0x00, 0x36, 0x02, 0x00,
	0x41, 0x04, 0x41, 0x80, 0x20, 0x36, 0x02, 0x00,
	0x41, 0x00, 0x41, 0x00, 0x41, 0x01, 0x41, 0x10, 0x10, 0x00, 0x1a,
	0x41, 0x20, 0x41, 0xc0, 0x00, 0x36, 0x02, 0x00,
	0x41, 0x24, 0x41, 0x10, 0x28, 0x02, 0x00, 0x36, 0x02, 0x00,
	0x41, 0x01, 0x41, 0x20, 0x41, 0x01, 0x41, 0x30, 0x10, 0x01, 0x1a,
	0x0b,
}

// wasiExitWasm calls proc_exit(3) from _start.
var wasiExitWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type
	0x01, 0x08, 0x02,
	0x60, 0x01, 0x7f, 0x00,
	0x60, 0x00, 0x00,
	// import
	0x02, 0x24, 0x01,
	0x16, 'w', 'a', 's', 'i', '_', 's', 'n', 'a', 'p', 's', 'h', 'o', 't', '_', 'p', 'r', 'e', 'v', 'i', 'e', 'w', '1',
	0x09, 'p', 'r', 'o', 'c', '_', 'e', 'x', 'i', 't', 0x00, 0x00,
	// function
	0x03, 0x02, 0x01, 0x01,
	// memory
	0x05, 0x03, 0x01, 0x00, 0x01,
	// export
	0x07, 0x13, 0x02,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x06, '_', 's', 't', 'a', 'r', 't', 0x00, 0x01,
	// code
	0x0a, 0x08, 0x01,
	0x06, 0x00, 0x41, 0x03, 0x10, 0x00, 0x0b,
}

// linearCountingWasm is linearEchoWasm plus bookkeeping: dealloc and
// _initialize bump counters readable through frees and inits, and
// failWith echoes its input flagged as a guest-reported error.
//
//	(module
//	  (memory (export "memory") 1)
//	  (global $heap (mut i32) (i32.const 1024))
//	  (global $inits (mut i32) (i32.const 0))
//	  (global $frees (mut i32) (i32.const 0))
//	  (func (export "alloc") (param i32) (result i32) ...)
//	  (func (export "parseJson") (param i32 i32) (result i64) ...)
//	  (func (export "fail") (param i32 i32) (result i64) unreachable)
//	  (func (export "dealloc") (param i32 i32)
//	    (global.set $frees (i32.add (global.get $frees) (i32.const 1))))
//	  (func (export "_initialize")
//	    (global.set $inits (i32.add (global.get $inits) (i32.const 1))))
//	  (func (export "inits") (result i32) global.get $inits)
//	  (func (export "frees") (result i32) global.get $frees)
//	  (func (export "failWith") (param i32 i32) (result i64)
//	    (i64.or
//	      (i64.or
//	        (i64.shl (i64.extend_i32_u (local.get 0)) (i64.const 32))
//	        (i64.extend_i32_u (local.get 1)))
//	      (i64.const 0x80000000))))
var linearCountingWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type
	0x01, 0x18, 0x05,
	0x60, 0x01, 0x7f, 0x01, 0x7f,
	0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7e,
	0x60, 0x02, 0x7f, 0x7f, 0x00,
	0x60, 0x00, 0x00,
	0x60, 0x00, 0x01, 0x7f,
	// function
	0x03, 0x09, 0x08, 0x00, 0x01, 0x01, 0x02, 0x03, 0x04, 0x04, 0x01,
	// memory
	0x05, 0x03, 0x01, 0x00, 0x01,
	// global
	0x06, 0x11, 0x03,
	0x7f, 0x01, 0x41, 0x80, 0x08, 0x0b,
	0x7f, 0x01, 0x41, 0x00, 0x0b,
	0x7f, 0x01, 0x41, 0x00, 0x0b,
	// export
	0x07, 0x58, 0x09,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x05, 'a', 'l', 'l', 'o', 'c', 0x00, 0x00,
	0x09, 'p', 'a', 'r', 's', 'e', 'J', 's', 'o', 'n', 0x00, 0x01,
	0x04, 'f', 'a', 'i', 'l', 0x00, 0x02,
	0x07, 'd', 'e', 'a', 'l', 'l', 'o', 'c', 0x00, 0x03,
	0x0b, '_', 'i', 'n', 'i', 't', 'i', 'a', 'l', 'i', 'z', 'e', 0x00, 0x04,
	0x05, 'i', 'n', 'i', 't', 's', 0x00, 0x05,
	0x05, 'f', 'r', 'e', 'e', 's', 0x00, 0x06,
	0x08, 'f', 'a', 'i', 'l', 'W', 'i', 't', 'h', 0x00, 0x07,
	// code
	0x0a, 0x50, 0x08,
	0x0b, 0x00, 0x23, 0x00, 0x23, 0x00, 0x20, 0x00, 0x6a, 0x24, 0x00, 0x0b,
	0x0c, 0x00, 0x20, 0x00, 0xad, 0x42, 0x20, 0x86, 0x20, 0x01, 0xad, 0x84, 0x0b,
	0x03, 0x00, 0x00, 0x0b,
	0x09, 0x00, 0x23, 0x02, 0x41, 0x01, 0x6a, 0x24, 0x02, 0x0b,
	0x09, 0x00, 0x23, 0x01, 0x41, 0x01, 0x6a, 0x24, 0x01, 0x0b,
	0x04, 0x00, 0x23, 0x01, 0x0b,
	0x04, 0x00, 0x23, 0x02, 0x0b,
	0x13, 0x00,
	0x20, 0x00, 0xad, 0x42, 0x20, 0x86,
	0x20, 0x01, 0xad, 0x84,
	0x42, 0x80, 0x80, 0x80, 0x80, 0x08, 0x84,
	0x0b,
}
