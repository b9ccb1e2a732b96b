package engine

import (
	"errors"
	"fmt"
)

// Kind names an error category. The CLI prints the kind to stderr and
// maps any kind to a non-zero exit code; controllers use kinds to decide
// whether to translate a driver error or let it propagate.
type Kind string

const (
	// Input errors.
	KindRequiredArgumentMissing    Kind = "RequiredArgumentMissing"
	KindMutuallyExclusiveArguments Kind = "MutuallyExclusiveArguments"
	KindInvalidArgumentType        Kind = "InvalidArgumentType"
	KindUnrecognizedCLIArgument    Kind = "UnrecognizedCLIArgument"

	// Not-found errors.
	KindPathDoesNotExist         Kind = "PathDoesNotExist"
	KindDoesNotExist             Kind = "DoesNotExist"
	KindEntityNotFound           Kind = "EntityNotFound"
	KindEntityCollectionNotFound Kind = "EntityCollectionNotFound"
	KindCommitDoesNotExist       Kind = "CommitDoesNotExist"
	KindEnvironmentDoesNotExist  Kind = "EnvironmentDoesNotExist"
	KindSessionDoesNotExist      Kind = "SessionDoesNotExistException"

	// Driver execution errors.
	KindGitExecutionError                  Kind = "GitExecutionError"
	KindEnvironmentExecutionError          Kind = "EnvironmentExecutionError"
	KindEnvironmentInitFailed              Kind = "EnvironmentInitFailed"
	KindEnvironmentRequirementsCreateError Kind = "EnvironmentRequirementsCreateError"
	KindFileIOError                        Kind = "FileIOError"

	// State errors.
	KindUnstagedChanges          Kind = "UnstagedChanges"
	KindCommitFailed             Kind = "CommitFailed"
	KindDatmoFolderInWorkTree    Kind = "DatmoFolderInWorkTree"
	KindProjectNotInitialized    Kind = "ProjectNotInitialized"
	KindDatmoModelNotInitialized Kind = "DatmoModelNotInitialized"
	KindTaskRunException         Kind = "TaskRunException"
	KindTooManyArgumentsFound    Kind = "TooManyArgumentsFound"
)

// Error carries a Kind alongside a message and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf creates an Error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind around an existing cause.
// If err already carries the same kind it is returned unchanged.
func Wrap(kind Kind, err error, message string) *Error {
	var e *Error
	if errors.As(err, &e) && e.Kind == kind {
		return e
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf classifies an error. Errors without an engine kind report the
// empty Kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
