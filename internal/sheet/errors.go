package sheet

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptySheet        = errors.New("empty sheet")
	ErrMissingColumn     = errors.New("missing mandatory column")
	ErrNoRows            = errors.New("no valid rows")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrUnknownKind       = errors.New("unknown sheet kind")
)

// SheetError is a failure confined to one sheet; the workbook loop moves on
// to the next sheet.
type SheetError struct {
	Sheet string
	Kind  Kind
	Err   error
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("%s: %v", e.Sheet, e.Err)
}

func (e *SheetError) Unwrap() error { return e.Err }

func sheetErr(name string, kind Kind, err error) *SheetError {
	return &SheetError{Sheet: name, Kind: kind, Err: err}
}

// WorkbookError is returned when no sheet of a workbook could be parsed.
type WorkbookError struct {
	File   string
	Kind   Kind
	Sheets []*SheetError
}

func (e *WorkbookError) Error() string {
	if len(e.Sheets) == 0 {
		return fmt.Sprintf("%s (%s): %v", e.File, e.Kind, ErrEmptySheet)
	}
	parts := make([]string, 0, len(e.Sheets))
	for _, s := range e.Sheets {
		parts = append(parts, s.Error())
	}
	return fmt.Sprintf("%s (%s): %s", e.File, e.Kind, strings.Join(parts, " | "))
}

// Unwrap exposes every sheet failure to errors.Is / errors.As.
func (e *WorkbookError) Unwrap() []error {
	out := make([]error, len(e.Sheets))
	for i, s := range e.Sheets {
		out[i] = s
	}
	return out
}
