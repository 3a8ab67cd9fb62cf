// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

// Package models defines the JSON envelope shared by every HTTP response.
//
// Payload types for the backup endpoints live in internal/backup and are
// carried in APIResponse.Data unchanged.
package models
