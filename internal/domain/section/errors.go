package section

import "errors"

var (
	ErrNotFound        = errors.New("section record not found")
	ErrUnknownKind     = errors.New("unknown section kind")
	ErrUnknownField    = errors.New("unknown field")
	ErrWrongFieldType  = errors.New("operation does not apply to this field type")
	ErrInvalidOption   = errors.New("invalid option")
	ErrCapExceeded     = errors.New("selection cap exceeded")
	ErrItemNotSelected = errors.New("item is not selected")
	ErrNoConsultation  = errors.New("no consultation selected")
	ErrLoading         = errors.New("section is still loading")
	ErrSaveFailed      = errors.New("section save failed")
	ErrEditorClosed    = errors.New("editor is closed")
	ErrPatientMismatch = errors.New("consultation does not belong to patient")
	ErrInvalidRecord   = errors.New("invalid section record")
)
