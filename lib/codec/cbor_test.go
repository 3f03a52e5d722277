// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

type sample struct {
	Name    string            `cbor:"name"`
	Count   int               `cbor:"count"`
	Tags    map[string]string `cbor:"tags,omitempty"`
	Payload []byte            `cbor:"payload,omitempty"`
}

func TestRoundtrip(t *testing.T) {
	in := sample{
		Name:    "partition-a",
		Count:   3,
		Tags:    map[string]string{"kind": "object", "target": "x86_64-linux"},
		Payload: []byte{0xde, 0xad, 0xbe, 0xef},
	}

	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var out sample
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if out.Name != in.Name || out.Count != in.Count {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", out, in)
	}
	if !bytes.Equal(out.Payload, in.Payload) {
		t.Errorf("payload mismatch: got %x, want %x", out.Payload, in.Payload)
	}
	for k, v := range in.Tags {
		if out.Tags[k] != v {
			t.Errorf("tag %q = %q, want %q", k, out.Tags[k], v)
		}
	}
}

// Map encoding must be deterministic: identical input produces
// identical bytes regardless of Go's map iteration order. Object
// emission and work-product records depend on this.
func TestDeterministicMapEncoding(t *testing.T) {
	value := map[string]int{
		"zebra": 1, "alpha": 2, "mango": 3, "delta": 4, "kappa": 5,
	}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	for i := 0; i < 50; i++ {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal failed on iteration %d: %v", i, err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("non-deterministic encoding on iteration %d:\n first: %x\n again: %x", i, first, again)
		}
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	var out sample
	if err := Unmarshal([]byte{0xff, 0x00, 0x13}, &out); err == nil {
		t.Error("Unmarshal of garbage bytes should fail")
	}
}
