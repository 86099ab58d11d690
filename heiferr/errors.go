// Package heiferr defines the single error taxonomy (spec §7) shared by
// the reader, writer, box library, and parameter-set parsers. Call sites
// wrap a sentinel with fmt.Errorf("...: %w", ErrX, extra) and callers use
// errors.Is/errors.As, mirroring the teacher's fmt.Errorf-based style
// generalized into a closed error-kind set.
package heiferr

import "errors"

// Sentinel error kinds. Each is matched with errors.Is after wrapping.
var (
	// ErrUnsupportedInput: brand set does not match either recognized
	// combination ({mif1,heic} or {msf1,hevc}).
	ErrUnsupportedInput = errors.New("heif: unsupported input")

	// ErrFileReadError: underlying stream short-read or a non-contiguous
	// top-level box (e.g. a second ftyp).
	ErrFileReadError = errors.New("heif: file read error")

	// ErrInvalidItemId: caller passed an item ID not present in the model.
	ErrInvalidItemId = errors.New("heif: invalid item id")

	// ErrInvalidContextId: caller passed a context ID not present in the
	// registry.
	ErrInvalidContextId = errors.New("heif: invalid context id")

	// ErrInvalidPropertyIndex: a 1-based property index resolves outside
	// the property container.
	ErrInvalidPropertyIndex = errors.New("heif: invalid property index")

	// ErrInvalidSampleDescriptionIndex: a stsc/stsd index is out of range.
	ErrInvalidSampleDescriptionIndex = errors.New("heif: invalid sample description index")

	// ErrProtectedItem: get_item_data refused because protection_index != 0.
	ErrProtectedItem = errors.New("heif: item is protected")

	// ErrUnprotectedItem: a protection query was made on an unprotected item.
	ErrUnprotectedItem = errors.New("heif: item is not protected")

	// ErrNotApplicable: a feature requested that is not implemented for
	// the parsed file shape (e.g. item_offset construction method).
	ErrNotApplicable = errors.New("heif: not applicable to this file")

	// ErrMediaParsingError: a parameter-set parse failed structurally.
	ErrMediaParsingError = errors.New("heif: media parsing error")

	// ErrInvalidFunctionParameter: e.g. a frame index beyond sample count.
	ErrInvalidFunctionParameter = errors.New("heif: invalid function parameter")

	// ErrWriterValidation: a writer-time invariant violation.
	ErrWriterValidation = errors.New("heif: writer validation error")

	// ErrUninitialized: a query was made on a reader that has not
	// completed initialization (state machine: Uninitialized).
	ErrUninitialized = errors.New("heif: reader is uninitialized")
)
