// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package jit

import (
	"fmt"
	"strings"

	"github.com/kilnproject/kiln/lib/backend"
	"github.com/kilnproject/kiln/lib/program"
)

// redirectPrefix marks a body that forwards to another symbol instead
// of carrying code. The allocator shim emits exactly this form.
const redirectPrefix = "tailcall:"

// RedirectBackend is the reference executable backend. It cannot run
// lowered code bytes, but it can execute redirect bodies: a function
// whose body is "tailcall:<symbol>" resolves to the target's address,
// following local redirects and ending at a primed import. Programs
// whose functions are thin wrappers over dylib symbols run end to
// end; anything carrying real lowered code is rejected at address
// resolution.
type RedirectBackend struct {
	pointerWidth int
	callConv     string
}

// NewRedirectBackend creates a redirect backend with the given
// pointer width.
func NewRedirectBackend(pointerWidth int) *RedirectBackend {
	return &RedirectBackend{pointerWidth: pointerWidth, callConv: "sysv64"}
}

// NewModule implements backend.Backend. The module has no symbol
// resolver, so every finalized address lookup fails; use
// NewExecModule for execution.
func (b *RedirectBackend) NewModule(name string) (backend.Module, error) {
	return b.newModule(name, nil)
}

// NewExecModule implements ExecBackend.
func (b *RedirectBackend) NewExecModule(name string, resolve SymbolResolver) (ExecModule, error) {
	return b.newModule(name, resolve)
}

func (b *RedirectBackend) newModule(name string, resolve SymbolResolver) (*redirectModule, error) {
	if name == "" {
		return nil, fmt.Errorf("module name must not be empty")
	}
	return &redirectModule{
		name:    name,
		resolve: resolve,
		ids:     make(map[string]backend.FuncID),
		data:    make(map[string]backend.DataID),
	}, nil
}

// NewDebugContext implements backend.Backend. The redirect backend
// has no debug-info support.
func (b *RedirectBackend) NewDebugContext() backend.DebugContext { return nil }

// PointerWidth implements backend.Backend.
func (b *RedirectBackend) PointerWidth() int { return b.pointerWidth }

// DefaultCallConv implements backend.Backend.
func (b *RedirectBackend) DefaultCallConv() string { return b.callConv }

// TrapBody implements backend.Backend.
func (b *RedirectBackend) TrapBody() []byte { return []byte("kiln.trap\x00") }

type redirectFunction struct {
	symbol  string
	linkage backend.Linkage
	body    []byte
	defined bool
}

type redirectData struct {
	symbol  string
	defined bool
}

type redirectModule struct {
	name    string
	resolve SymbolResolver

	functions []redirectFunction
	statics   []redirectData
	ids       map[string]backend.FuncID
	data      map[string]backend.DataID

	finalized bool
}

func (m *redirectModule) Name() string { return m.name }

// DeclareFunction upgrades an import declaration in place when the
// defining declaration arrives, so the entry symbol can be declared
// as an import before translation reaches its definition.
func (m *redirectModule) DeclareFunction(symbol string, linkage backend.Linkage, sig program.Signature) (backend.FuncID, error) {
	if m.finalized {
		return 0, fmt.Errorf("module %s: declaring %s after finalize", m.name, symbol)
	}
	if symbol == "" {
		return 0, fmt.Errorf("module %s: empty function symbol", m.name)
	}
	if id, ok := m.ids[symbol]; ok {
		record := &m.functions[id]
		if record.linkage == backend.Import && linkage != backend.Import {
			record.linkage = linkage
		}
		return id, nil
	}
	id := backend.FuncID(len(m.functions))
	m.functions = append(m.functions, redirectFunction{symbol: symbol, linkage: linkage})
	m.ids[symbol] = id
	return id, nil
}

func (m *redirectModule) DefineFunction(id backend.FuncID, code []byte) error {
	if m.finalized {
		return fmt.Errorf("module %s: defining function after finalize", m.name)
	}
	if int(id) < 0 || int(id) >= len(m.functions) {
		return fmt.Errorf("module %s: unknown function id %d", m.name, id)
	}
	record := &m.functions[id]
	if record.defined {
		return fmt.Errorf("module %s: function %s defined twice", m.name, record.symbol)
	}
	if record.linkage == backend.Import {
		return fmt.Errorf("module %s: defining imported function %s", m.name, record.symbol)
	}
	record.body = append([]byte(nil), code...)
	record.defined = true
	return nil
}

func (m *redirectModule) DeclareData(symbol string, linkage backend.Linkage, writable bool) (backend.DataID, error) {
	if m.finalized {
		return 0, fmt.Errorf("module %s: declaring %s after finalize", m.name, symbol)
	}
	if symbol == "" {
		return 0, fmt.Errorf("module %s: empty data symbol", m.name)
	}
	if id, ok := m.data[symbol]; ok {
		return id, nil
	}
	id := backend.DataID(len(m.statics))
	m.statics = append(m.statics, redirectData{symbol: symbol})
	m.data[symbol] = id
	return id, nil
}

func (m *redirectModule) DefineData(id backend.DataID, contents []byte) error {
	if m.finalized {
		return fmt.Errorf("module %s: defining data after finalize", m.name)
	}
	if int(id) < 0 || int(id) >= len(m.statics) {
		return fmt.Errorf("module %s: unknown data id %d", m.name, id)
	}
	record := &m.statics[id]
	if record.defined {
		return fmt.Errorf("module %s: data %s defined twice", m.name, record.symbol)
	}
	record.defined = true
	return nil
}

func (m *redirectModule) FinalizeDefinitions() error {
	if m.finalized {
		return fmt.Errorf("module %s: finalized twice", m.name)
	}
	for _, record := range m.functions {
		if record.linkage != backend.Import && !record.defined {
			return fmt.Errorf("module %s: function %s declared but never defined", m.name, record.symbol)
		}
	}
	m.finalized = true
	return nil
}

// Finish implements backend.Module. Redirect modules execute; they do
// not serialize.
func (m *redirectModule) Finish() (backend.Product, error) {
	return nil, fmt.Errorf("module %s: redirect modules produce no objects", m.name)
}

// FinalizedAddress implements ExecModule: follow the redirect chain
// from the function to a primed import address.
func (m *redirectModule) FinalizedAddress(id backend.FuncID) (uintptr, error) {
	if !m.finalized {
		return 0, fmt.Errorf("module %s: address lookup before finalize", m.name)
	}
	if int(id) < 0 || int(id) >= len(m.functions) {
		return 0, fmt.Errorf("module %s: unknown function id %d", m.name, id)
	}
	return m.address(m.functions[id].symbol, make(map[string]bool))
}

func (m *redirectModule) address(symbol string, visiting map[string]bool) (uintptr, error) {
	if visiting[symbol] {
		return 0, fmt.Errorf("module %s: redirect cycle through %s", m.name, symbol)
	}
	visiting[symbol] = true

	id, ok := m.ids[symbol]
	if !ok {
		return m.importAddress(symbol)
	}
	record := m.functions[id]
	if record.linkage == backend.Import {
		return m.importAddress(symbol)
	}

	body := string(record.body)
	target, ok := strings.CutPrefix(body, redirectPrefix)
	if !ok {
		return 0, fmt.Errorf("module %s: function %s carries lowered code the redirect backend cannot execute", m.name, symbol)
	}
	return m.address(target, visiting)
}

func (m *redirectModule) importAddress(symbol string) (uintptr, error) {
	if m.resolve == nil {
		return 0, fmt.Errorf("module %s: no symbol resolver for import %s", m.name, symbol)
	}
	addr, ok := m.resolve(symbol)
	if !ok {
		return 0, fmt.Errorf("module %s: unresolved import %s", m.name, symbol)
	}
	return addr, nil
}
