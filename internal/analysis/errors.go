// SPDX-License-Identifier: MIT
package analysis

import "errors"

// Sentinel errors returned (wrapped) by the analysis package. Callers should
// match them with errors.Is.
var (
	// ErrInvalidConfig reports a construction or call parameter that makes the
	// computation undefined: a transform size below two, zero display bins, an
	// empty or inverted dB window, or an engine that cannot handle the size.
	ErrInvalidConfig = errors.New("analysis: invalid config")

	// ErrLengthMismatch reports paired sequences of different lengths.
	ErrLengthMismatch = errors.New("analysis: length mismatch")
)
