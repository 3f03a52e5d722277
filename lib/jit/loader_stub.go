// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !darwin && !freebsd && !linux

package jit

import "fmt"

type loader interface {
	Open(path string) (library, error)
}

type library interface {
	Symbol(lookup string) (uintptr, error)
}

type stubLoader struct{}

func newLoader() loader { return stubLoader{} }

func (stubLoader) Open(path string) (library, error) {
	return nil, fmt.Errorf("jit mode is not supported on this platform")
}

func invokeEntry(entry uintptr, args []string) int {
	panic("jit: invokeEntry on unsupported platform")
}
