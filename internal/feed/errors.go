package feed

import (
	"fmt"

	"cuelang.org/go/cue/token"
)

// Error codes for batch loading.
const (
	ErrCodeNotFound    = "E_NOT_FOUND"
	ErrCodeUnsupported = "E_UNSUPPORTED_FORMAT"
	ErrCodeParse       = "E_PARSE"
	ErrCodeSchema      = "E_SCHEMA"
	ErrCodeDecode      = "E_DECODE"
	ErrCodeInternal    = "E_INTERNAL"
)

// LoadError reports why a batch file could not be loaded.
type LoadError struct {
	Code    string
	Path    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
