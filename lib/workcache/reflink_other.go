// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package workcache

import "errors"

// reflink is unavailable off Linux; the caller falls back to hard
// link or copy.
func reflink(src, destination string) error {
	return errors.New("reflink not supported on this platform")
}
