package bmff

import (
	"fmt"

	"github.com/heifbox/heifbox/heiferr"
)

// ErrLargeItemIDInV0IRef is returned when the writer is asked to add an
// item ID beyond 16 bits to a version-0 ItemReferenceBox (spec §7,
// WriterValidationError example).
var ErrLargeItemIDInV0IRef = fmt.Errorf("bmff: item id exceeds 16 bits for iref version 0: %w", heiferr.ErrWriterValidation)
