// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || freebsd || linux

package jit

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"
)

// loader opens dependency dylibs and resolves symbol addresses from
// them.
type loader interface {
	Open(path string) (library, error)
}

type library interface {
	// Symbol resolves a symbol's runtime address by its loader-facing
	// spelling.
	Symbol(lookup string) (uintptr, error)
}

// dlLoader loads dylibs with the process-wide dynamic loader.
// RTLD_GLOBAL puts every loaded library's symbols into the global
// namespace so later libraries resolve against earlier ones, matching
// what the real link would have done.
type dlLoader struct{}

func newLoader() loader { return dlLoader{} }

func (dlLoader) Open(path string) (library, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("loading dylib %s: %w", path, err)
	}
	return dlLibrary{handle: handle, path: path}, nil
}

type dlLibrary struct {
	handle uintptr
	path   string
}

func (l dlLibrary) Symbol(lookup string) (uintptr, error) {
	addr, err := purego.Dlsym(l.handle, lookup)
	if err != nil {
		return 0, fmt.Errorf("resolving symbol %q in %s: %w", lookup, l.path, err)
	}
	return addr, nil
}

// invokeEntry calls the jitted entry point with a C-style argv and
// returns its exit code. The entry has the C signature
// (argc, argv) -> isize.
func invokeEntry(entry uintptr, args []string) int {
	cstrings := make([][]byte, len(args))
	argv := make([]*byte, len(args)+1)
	for i, arg := range args {
		cstrings[i] = append([]byte(arg), 0)
		argv[i] = &cstrings[i][0]
	}
	argv[len(args)] = nil

	ret, _, _ := purego.SyscallN(entry,
		uintptr(len(args)), uintptr(unsafe.Pointer(&argv[0])))
	runtime.KeepAlive(cstrings)
	runtime.KeepAlive(argv)
	return int(int64(ret))
}
