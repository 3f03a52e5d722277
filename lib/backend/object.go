// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"fmt"

	"github.com/kilnproject/kiln/lib/codec"
	"github.com/kilnproject/kiln/lib/program"
)

// ObjectMagic prefixes every serialized kiln object container.
var ObjectMagic = []byte("KOBJ\x01")

// trapBody is the recognizable failure-marker body. A linked program
// that reaches it traps instead of executing garbage.
var trapBody = []byte("kiln.trap\x00")

// ObjectBackend is the reference translation backend: a deterministic
// serializer. It performs no instruction selection — lowered code
// bytes arrive from the program database — but it enforces the full
// declare/define/finalize protocol and emits a byte-reproducible
// object container for identical input.
type ObjectBackend struct {
	pointerWidth int
	callConv     string
}

// NewObjectBackend creates the reference backend for a 64-bit target.
func NewObjectBackend() *ObjectBackend {
	return &ObjectBackend{pointerWidth: 8, callConv: "sysv64"}
}

// NewObjectBackendForTarget creates the reference backend sized for
// the given target triple.
func NewObjectBackendForTarget(target string) *ObjectBackend {
	backend := NewObjectBackend()
	backend.pointerWidth = program.PointerWidthForTarget(target)
	return backend
}

// NewModule implements Backend.
func (b *ObjectBackend) NewModule(name string) (Module, error) {
	if name == "" {
		return nil, fmt.Errorf("module name must not be empty")
	}
	return &objectModule{
		name:         name,
		pointerWidth: b.pointerWidth,
		callConv:     b.callConv,
		functions:    make(map[string]FuncID),
		data:         make(map[string]DataID),
	}, nil
}

// NewDebugContext implements Backend.
func (b *ObjectBackend) NewDebugContext() DebugContext {
	return &objectDebugContext{pointerWidth: b.pointerWidth}
}

// PointerWidth implements Backend.
func (b *ObjectBackend) PointerWidth() int { return b.pointerWidth }

// DefaultCallConv implements Backend.
func (b *ObjectBackend) DefaultCallConv() string { return b.callConv }

// TrapBody implements Backend.
func (b *ObjectBackend) TrapBody() []byte { return trapBody }

// FunctionRecord is one function in the object container, in
// declaration order.
type FunctionRecord struct {
	Symbol  string            `cbor:"symbol"`
	Linkage uint8             `cbor:"linkage"`
	Sig     program.Signature `cbor:"sig"`
	Code    []byte            `cbor:"code,omitempty"`
	Defined bool              `cbor:"defined"`
}

// DataRecord is one data object in the object container.
type DataRecord struct {
	Symbol   string `cbor:"symbol"`
	Linkage  uint8  `cbor:"linkage"`
	Writable bool   `cbor:"writable"`
	Contents []byte `cbor:"contents,omitempty"`
	Defined  bool   `cbor:"defined"`
}

// ObjectContainer is the serialized object format: a CBOR document
// behind ObjectMagic, deterministic for identical declaration and
// definition sequences.
type ObjectContainer struct {
	Module       string           `cbor:"module"`
	PointerWidth int              `cbor:"pointer_width"`
	CallConv     string           `cbor:"call_conv"`
	Functions    []FunctionRecord `cbor:"functions"`
	Data         []DataRecord     `cbor:"data"`
	Debug        []byte           `cbor:"debug,omitempty"`
}

type objectModule struct {
	name         string
	pointerWidth int
	callConv     string

	functionList []FunctionRecord
	dataList     []DataRecord
	functions    map[string]FuncID
	data         map[string]DataID

	finalized bool
}

func (m *objectModule) Name() string { return m.name }

func (m *objectModule) DeclareFunction(symbol string, linkage Linkage, sig program.Signature) (FuncID, error) {
	if m.finalized {
		return 0, fmt.Errorf("module %s: declaring %s after finalize", m.name, symbol)
	}
	if symbol == "" {
		return 0, fmt.Errorf("module %s: empty function symbol", m.name)
	}
	if id, ok := m.functions[symbol]; ok {
		return id, nil
	}
	id := FuncID(len(m.functionList))
	m.functionList = append(m.functionList, FunctionRecord{
		Symbol:  symbol,
		Linkage: uint8(linkage),
		Sig:     sig,
	})
	m.functions[symbol] = id
	return id, nil
}

func (m *objectModule) DefineFunction(id FuncID, code []byte) error {
	if m.finalized {
		return fmt.Errorf("module %s: defining function after finalize", m.name)
	}
	if int(id) < 0 || int(id) >= len(m.functionList) {
		return fmt.Errorf("module %s: unknown function id %d", m.name, id)
	}
	record := &m.functionList[id]
	if record.Defined {
		return fmt.Errorf("module %s: function %s defined twice", m.name, record.Symbol)
	}
	if Linkage(record.Linkage) == Import {
		return fmt.Errorf("module %s: defining imported function %s", m.name, record.Symbol)
	}
	record.Code = append([]byte(nil), code...)
	record.Defined = true
	return nil
}

func (m *objectModule) DeclareData(symbol string, linkage Linkage, writable bool) (DataID, error) {
	if m.finalized {
		return 0, fmt.Errorf("module %s: declaring %s after finalize", m.name, symbol)
	}
	if symbol == "" {
		return 0, fmt.Errorf("module %s: empty data symbol", m.name)
	}
	if id, ok := m.data[symbol]; ok {
		return id, nil
	}
	id := DataID(len(m.dataList))
	m.dataList = append(m.dataList, DataRecord{
		Symbol:   symbol,
		Linkage:  uint8(linkage),
		Writable: writable,
	})
	m.data[symbol] = id
	return id, nil
}

func (m *objectModule) DefineData(id DataID, contents []byte) error {
	if m.finalized {
		return fmt.Errorf("module %s: defining data after finalize", m.name)
	}
	if int(id) < 0 || int(id) >= len(m.dataList) {
		return fmt.Errorf("module %s: unknown data id %d", m.name, id)
	}
	record := &m.dataList[id]
	if record.Defined {
		return fmt.Errorf("module %s: data %s defined twice", m.name, record.Symbol)
	}
	record.Contents = append([]byte(nil), contents...)
	record.Defined = true
	return nil
}

func (m *objectModule) FinalizeDefinitions() error {
	if m.finalized {
		return fmt.Errorf("module %s: finalized twice", m.name)
	}
	for _, record := range m.functionList {
		if Linkage(record.Linkage) != Import && !record.Defined {
			return fmt.Errorf("module %s: function %s declared but never defined", m.name, record.Symbol)
		}
	}
	for _, record := range m.dataList {
		if Linkage(record.Linkage) != Import && !record.Defined {
			return fmt.Errorf("module %s: data %s declared but never defined", m.name, record.Symbol)
		}
	}
	m.finalized = true
	return nil
}

func (m *objectModule) Finish() (Product, error) {
	if !m.finalized {
		return nil, fmt.Errorf("module %s: Finish before FinalizeDefinitions", m.name)
	}
	return &objectProduct{
		container: ObjectContainer{
			Module:       m.name,
			PointerWidth: m.pointerWidth,
			CallConv:     m.callConv,
			Functions:    m.functionList,
			Data:         m.dataList,
		},
	}, nil
}

type objectProduct struct {
	container ObjectContainer
}

func (p *objectProduct) MergeDebugInfo(debug []byte) error {
	if p.container.Debug != nil {
		return fmt.Errorf("object %s: debug info merged twice", p.container.Module)
	}
	p.container.Debug = append([]byte(nil), debug...)
	return nil
}

func (p *objectProduct) Emit() ([]byte, error) {
	encoded, err := codec.Marshal(p.container)
	if err != nil {
		return nil, fmt.Errorf("serializing object %s: %w", p.container.Module, err)
	}
	object := make([]byte, 0, len(ObjectMagic)+len(encoded))
	object = append(object, ObjectMagic...)
	object = append(object, encoded...)
	return object, nil
}

// DecodeObject parses serialized object bytes back into their
// container form. Used by reuse verification and tests; a real linker
// would consume the container directly.
func DecodeObject(object []byte) (*ObjectContainer, error) {
	if len(object) < len(ObjectMagic) || string(object[:len(ObjectMagic)]) != string(ObjectMagic) {
		return nil, fmt.Errorf("not a kiln object: bad magic")
	}
	var container ObjectContainer
	if err := codec.Unmarshal(object[len(ObjectMagic):], &container); err != nil {
		return nil, fmt.Errorf("decoding object container: %w", err)
	}
	return &container, nil
}
