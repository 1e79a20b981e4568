package overrides

import (
	"errors"
	"fmt"
	"io"
)

// MaxDocumentSize bounds an overrides document read from disk or a
// registry.
const MaxDocumentSize = 1 << 20

// ErrTooLarge is matched by SizeLimitError.
var ErrTooLarge = errors.New("overrides document too large")

// SizeLimitError reports a document over MaxDocumentSize. Size is a lower
// bound when the document was streamed.
type SizeLimitError struct {
	Limit int64
	Size  int64
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("overrides document too large: at least %d bytes, limit is %d bytes", e.Size, e.Limit)
}

func (e *SizeLimitError) Is(target error) bool {
	return target == ErrTooLarge
}

// CheckSize returns a *SizeLimitError if size exceeds MaxDocumentSize.
func CheckSize(size int64) error {
	if size > MaxDocumentSize {
		return &SizeLimitError{Limit: MaxDocumentSize, Size: size}
	}
	return nil
}

// ReadAll reads r to the end, stopping with a *SizeLimitError as soon as
// MaxDocumentSize is passed.
func ReadAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxDocumentSize+1))
	if err != nil {
		return nil, err
	}
	if err := CheckSize(int64(len(data))); err != nil {
		return nil, err
	}
	return data, nil
}
