package models

import "errors"

// Application-wide standard errors
var (
	// Common resource errors
	ErrNotFound = errors.New("resource not found") // general not found

	// World graph errors
	ErrLocationNotFound       = errors.New("origin location not found")
	ErrNoExit                 = errors.New("no exit in that direction")
	ErrTargetLocationNotFound = errors.New("target location not found")
	ErrInvalidDirection       = errors.New("direction is not canonical")
	ErrLocationHasInboundEdges = errors.New("location still has inbound edges")

	// Player errors
	ErrPlayerNotFound = errors.New("player not found")

	// Event processing errors
	ErrDuplicateEvent     = errors.New("event already processed")
	ErrUnknownEventType   = errors.New("unknown event type")
	ErrInvalidEnvelope    = errors.New("event envelope failed validation")
	ErrInvalidPayload     = errors.New("event payload failed validation")
	ErrHandlerNotRegistered = errors.New("no handler registered for event type")

	// Layer errors
	ErrLayerNotFound    = errors.New("description layer not found")
	ErrRevisionConflict = errors.New("location clock revision conflict")

	// Generation errors
	ErrGenerationFailed = errors.New("description generation failed")

	// General errors
	ErrInternalServer = errors.New("internal server error")
	ErrInvalidInput   = errors.New("invalid input data")
)
