// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

//go:build windows

package postgres

import "os/exec"

// configureProcess keeps exec's default cancellation, which kills the tool
// process.
func configureProcess(_ *exec.Cmd) {}
