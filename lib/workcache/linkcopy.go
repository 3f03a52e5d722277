// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package workcache

import (
	"fmt"
	"io"
	"os"
)

// linkOrCopy materializes src at destination as cheaply as the
// filesystem allows: reflink first (same-filesystem CoW clone), then
// hard link, then a plain byte copy. The destination is replaced if
// it already exists, matching the overwrite semantics of a fresh
// session temp path.
func linkOrCopy(src, destination string) error {
	if err := os.Remove(destination); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale %s: %w", destination, err)
	}

	if err := reflink(src, destination); err == nil {
		return nil
	}

	if err := os.Link(src, destination); err == nil {
		return nil
	}

	source, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer source.Close()

	target, err := os.OpenFile(destination, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", destination, err)
	}

	if err := copyStream(source, target); err != nil {
		target.Close()
		os.Remove(destination)
		return fmt.Errorf("copying %s to %s: %w", src, destination, err)
	}
	if err := target.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", destination, err)
	}
	return nil
}

// copyContents streams the file at src into an already-open target.
func copyContents(src string, target *os.File) error {
	source, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer source.Close()
	return copyStream(source, target)
}

func copyStream(source io.Reader, target io.Writer) error {
	if _, err := io.Copy(target, source); err != nil {
		return err
	}
	return nil
}
