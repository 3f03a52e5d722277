// Copyright 2026 The Kiln Authors
// SPDX-License-Identifier: Apache-2.0

package driver

import "time"

// timed runs f, wrapping it with start/end timing log output when
// DisplayTimings is set. Sections are coarse (whole phases, not
// per-item) so the output stays readable.
func (s *aotSession) timed(name string, f func() error) error {
	if !s.cfg.DisplayTimings || s.logger == nil {
		return f()
	}

	s.logger.Info("section start", "crate", s.db.CrateName(), "section", name)
	start := time.Now()
	err := f()
	s.logger.Info("section end", "crate", s.db.CrateName(), "section", name, "elapsed", time.Since(start))
	return err
}
