// Hardstore - Hardware Store Management Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hardstore

/*
Package validation validates API request structs with go-playground/validator.

A single validator instance is shared by all handlers; it caches struct
metadata and is safe for concurrent use. Fields are reported by their json
name, so a failure on RestoreBackupRequest.FileName names "fileName".

In addition to the built-in tags, "filename" accepts only a single path
element: no '/', '\' or NUL, and neither "." nor "..".

Usage:

	type RestoreBackupRequest struct {
	    FileName     string `json:"fileName" validate:"required,filename,max=255"`
	    Confirmation string `json:"confirmation" validate:"required,max=255"`
	}

	if err := validation.ValidateStruct(&req); err != nil {
	    apiErr := err.ToAPIError()
	    respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
	    return
	}

Every failure converts to the API code VALIDATION_FAILED. A single failed
field carries field, tag and value details; several failures carry a
"fields" list.
*/
package validation
