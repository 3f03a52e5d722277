// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package workcache

import (
	"os"

	"golang.org/x/sys/unix"
)

// reflink clones src to destination with FICLONE. Only works when
// both paths live on the same CoW-capable filesystem (btrfs, xfs with
// reflink); the caller falls back to hard link or copy on error.
func reflink(src, destination string) error {
	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer source.Close()

	target, err := os.OpenFile(destination, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if err := unix.IoctlFileClone(int(target.Fd()), int(source.Fd())); err != nil {
		target.Close()
		os.Remove(destination)
		return err
	}
	return target.Close()
}
