package wizard

import "errors"

var (
	ErrSessionNotFound      = errors.New("wizard session not found")
	ErrSessionClosed        = errors.New("wizard session is closed")
	ErrUnknownStep          = errors.New("unknown step")
	ErrUnknownSubStep       = errors.New("unknown sub-step")
	ErrNoSectionHere        = errors.New("no section at this position")
	ErrConsultationMismatch = errors.New("consultation does not belong to the session patient")
	ErrTemplateNotFound     = errors.New("plan template not found")
	ErrInvalidTemplateName  = errors.New("invalid plan template name")
	ErrUnknownChange        = errors.New("unknown change operation")
)
