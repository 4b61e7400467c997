package fleet

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a CoreError into the reply taxonomy: BuildService,
// BuildListener, SiteNotExist,
// PreparationNotExist, PreviousHandlerNotExist, SendFailed.
type ErrorKind int

const (
	// ErrKindBuildService means a Factory rejected configuration or
	// resource acquisition.
	ErrKindBuildService ErrorKind = iota
	// ErrKindBuildListener means a ListenerFactory failed to bind/listen.
	ErrKindBuildListener
	// ErrKindSiteNotExist means the directive named a site the worker has
	// never seen (and RemoveService/UpdateDeployedWithStaged require it).
	ErrKindSiteNotExist
	// ErrKindPreparationNotExist means a publish directive ran with no
	// staged service present.
	ErrKindPreparationNotExist
	// ErrKindPreviousHandlerNotExist means UpdateDeployedWithStaged ran
	// against a site with no prior deployment.
	ErrKindPreviousHandlerNotExist
	// ErrKindSendFailed marks a fatal reply-channel bookkeeping failure;
	// it is never returned to a caller, only logged.
	ErrKindSendFailed
)

// String renders the error kind the way it appears on the wire.
func (k ErrorKind) String() string {
	switch k {
	case ErrKindBuildService:
		return "BuildService"
	case ErrKindBuildListener:
		return "BuildListener"
	case ErrKindSiteNotExist:
		return "SiteNotExist"
	case ErrKindPreparationNotExist:
		return "PreparationNotExist"
	case ErrKindPreviousHandlerNotExist:
		return "PreviousHandlerNotExist"
	case ErrKindSendFailed:
		return "SendFailed"
	default:
		return "Unknown"
	}
}

// CoreError is the reply error type for every directive.
// It wraps an optional underlying cause (a Factory or ListenerFactory
// error) for the two kinds that carry one.
type CoreError struct {
	Kind  ErrorKind
	Site  SiteName
	Cause error
}

// Error implements the error interface.
func (e *CoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s(%s): %v", e.Kind, e.Site, e.Cause)
	}
	return fmt.Sprintf("%s(%s)", e.Kind, e.Site)
}

// Unwrap exposes the underlying Factory/ListenerFactory error to errors.Is/As.
func (e *CoreError) Unwrap() error {
	return e.Cause
}

// Is reports whether err is a CoreError of the same kind, ignoring Site and
// Cause. This lets callers write errors.Is(err, fleet.ErrPreparationNotExist).
func (e *CoreError) Is(target error) bool {
	var other *CoreError
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

func newBuildServiceError(site SiteName, cause error) *CoreError {
	return &CoreError{Kind: ErrKindBuildService, Site: site, Cause: cause}
}

func newBuildListenerError(site SiteName, cause error) *CoreError {
	return &CoreError{Kind: ErrKindBuildListener, Site: site, Cause: cause}
}

func newSiteNotExistError(site SiteName) *CoreError {
	return &CoreError{Kind: ErrKindSiteNotExist, Site: site}
}

func newPreparationNotExistError(site SiteName) *CoreError {
	return &CoreError{Kind: ErrKindPreparationNotExist, Site: site}
}

func newPreviousHandlerNotExistError(site SiteName) *CoreError {
	return &CoreError{Kind: ErrKindPreviousHandlerNotExist, Site: site}
}

func newSendFailedError(site SiteName, cause error) *CoreError {
	return &CoreError{Kind: ErrKindSendFailed, Site: site, Cause: cause}
}

// Sentinel values for use with errors.Is against a bare kind, independent
// of site/cause.
var (
	ErrBuildService           = &CoreError{Kind: ErrKindBuildService}
	ErrBuildListener          = &CoreError{Kind: ErrKindBuildListener}
	ErrSiteNotExist           = &CoreError{Kind: ErrKindSiteNotExist}
	ErrPreparationNotExist    = &CoreError{Kind: ErrKindPreparationNotExist}
	ErrPreviousHandlerNotExist = &CoreError{Kind: ErrKindPreviousHandlerNotExist}
	ErrSendFailed             = &CoreError{Kind: ErrKindSendFailed}
)
