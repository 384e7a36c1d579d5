// Package main builds libkarel - the embeddable Karel VM runtime.
// This is built with -buildmode=c-shared.
//
// Every export mirrors a facade operation and returns the VM's int32 status
// codes. Strings cross the boundary as pointer+length; buffers are owned by
// the caller. The library hosts a single VM instance: karel_init creates it,
// karel_destroy tears it down, and a second init without a destroy reports
// NOT_INITIALIZED.
package main

/*
#include <stdint.h>
#include <stddef.h>
*/
import "C"
import (
	"sync"
	"unsafe"

	"github.com/atvexy/karel/compiler"
	"github.com/atvexy/karel/vm"
)

func main() {}

var (
	mu       sync.Mutex
	instance *vm.VM
)

// goString copies a pointer+length string from C.
func goString(p *C.char, n C.size_t) string {
	if p == nil || n == 0 {
		return ""
	}
	return string(C.GoBytes(unsafe.Pointer(p), C.int(n)))
}

//export karel_init
func karel_init() C.int32_t {
	mu.Lock()
	defer mu.Unlock()
	if instance != nil {
		return C.int32_t(vm.StatusNotInitialized)
	}
	instance = vm.NewVM()
	instance.UseCompiler(compiler.Compile)
	return C.int32_t(vm.StatusSuccess)
}

//export karel_destroy
func karel_destroy() C.int32_t {
	mu.Lock()
	defer mu.Unlock()
	if instance == nil {
		return C.int32_t(vm.StatusNotInitialized)
	}
	instance.Close()
	instance = nil
	return C.int32_t(vm.StatusSuccess)
}

// current returns the live instance, or nil when init hasn't run.
func current() *vm.VM {
	mu.Lock()
	defer mu.Unlock()
	return instance
}

//export karel_load_bytecode
func karel_load_bytecode(source *C.char, length C.size_t) C.int32_t {
	v := current()
	if v == nil {
		return C.int32_t(vm.StatusNotInitialized)
	}
	return C.int32_t(v.LoadProgram([]byte(goString(source, length))))
}

//export karel_load_bytecode_file
func karel_load_bytecode_file(path *C.char, length C.size_t) C.int32_t {
	v := current()
	if v == nil {
		return C.int32_t(vm.StatusNotInitialized)
	}
	return C.int32_t(v.LoadProgramFile(goString(path, length)))
}

//export karel_load_world
func karel_load_world(cells *C.uint8_t, robot *C.uint32_t) C.int32_t {
	v := current()
	if v == nil {
		return C.int32_t(vm.StatusNotInitialized)
	}
	if cells == nil || robot == nil {
		return C.int32_t(vm.StatusStateNotValid)
	}
	cellBytes := C.GoBytes(unsafe.Pointer(cells), C.int(vm.WorldCells))
	rec := vm.RobotRecord{}
	words := unsafe.Slice((*uint32)(unsafe.Pointer(robot)), len(rec))
	copy(rec[:], words)
	return C.int32_t(v.LoadWorld(cellBytes, rec))
}

//export karel_run_symbol
func karel_run_symbol(name *C.char, length C.size_t) C.int32_t {
	v := current()
	if v == nil {
		return C.int32_t(vm.StatusNotInitialized)
	}
	return C.int32_t(v.RunSymbol(goString(name, length)))
}

//export karel_short_circuit
func karel_short_circuit() C.int32_t {
	v := current()
	if v == nil {
		return C.int32_t(vm.StatusNotInitialized)
	}
	v.ShortCircuit()
	return C.int32_t(vm.StatusSuccess)
}

//export karel_status
func karel_status() C.int32_t {
	v := current()
	if v == nil {
		return C.int32_t(vm.StatusNotInitialized)
	}
	return C.int32_t(v.Status())
}

//export karel_read_world
func karel_read_world(out *C.uint8_t) C.int32_t {
	v := current()
	if v == nil {
		return C.int32_t(vm.StatusNotInitialized)
	}
	if out == nil {
		return C.int32_t(vm.StatusStateNotValid)
	}
	buf := make([]byte, vm.WorldCells)
	st := v.ReadWorld(buf)
	if st == vm.StatusSuccess {
		dst := unsafe.Slice((*byte)(unsafe.Pointer(out)), vm.WorldCells)
		copy(dst, buf)
	}
	return C.int32_t(st)
}

//export karel_read_robot
func karel_read_robot(out *C.uint32_t) C.int32_t {
	v := current()
	if v == nil {
		return C.int32_t(vm.StatusNotInitialized)
	}
	if out == nil {
		return C.int32_t(vm.StatusStateNotValid)
	}
	rec := v.RobotState()
	dst := unsafe.Slice((*uint32)(unsafe.Pointer(out)), len(rec))
	copy(dst, rec[:])
	return C.int32_t(vm.StatusSuccess)
}

//export karel_dump_symbols
func karel_dump_symbols(buf *C.char, capacity C.size_t) C.int32_t {
	v := current()
	if v == nil {
		return C.int32_t(vm.StatusNotInitialized)
	}
	if buf == nil || capacity == 0 {
		return C.int32_t(vm.StatusStateNotValid)
	}
	// Newline-separated names, NUL-terminated, truncated to the caller's
	// buffer.
	out := ""
	for i, name := range v.Symbols() {
		if i > 0 {
			out += "\n"
		}
		out += name
	}
	dst := unsafe.Slice((*byte)(unsafe.Pointer(buf)), int(capacity))
	n := copy(dst[:len(dst)-1], out)
	dst[n] = 0
	return C.int32_t(vm.StatusSuccess)
}
