// Package errors provides structured domain errors with machine-readable codes,
// gRPC status mapping and localized user messages.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Input errors
	CodeInvalidSector Code = "INVALID_SECTOR"
	CodeInvalidLevel  Code = "INVALID_LEVEL"
	CodeInvalidAnswer Code = "INVALID_ANSWER"
	CodeInvalidAmount Code = "INVALID_AMOUNT"
	CodeInvalidFilter Code = "INVALID_FILTER"

	// Play state errors
	CodeNoActiveProblem   Code = "NO_ACTIVE_PROBLEM"
	CodeNoActiveRun       Code = "NO_ACTIVE_RUN"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"

	// Identity errors
	CodeUserRequired Code = "USER_REQUIRED"
	CodeTokenInvalid Code = "TOKEN_INVALID"

	// Storage errors
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeStorageUnavailable Code = "STORAGE_UNAVAILABLE"

	// Engine errors
	CodeGeneratorExhausted Code = "GENERATOR_EXHAUSTED"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeInvalidSector,
		CodeInvalidLevel,
		CodeInvalidAnswer,
		CodeInvalidAmount,
		CodeInvalidFilter:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeNoActiveProblem,
		CodeNoActiveRun,
		CodeInsufficientFunds:
		return codes.FailedPrecondition

	case CodeUserRequired,
		CodeTokenInvalid:
		return codes.Unauthenticated

	case CodeNotFound:
		return codes.NotFound

	// Aborted - caller may retry the whole request
	case CodeConflict:
		return codes.Aborted

	case CodeStorageUnavailable:
		return codes.Unavailable

	default:
		return codes.Internal
	}
}

// Transient reports whether a caller may retry the failed request unchanged.
func (c Code) Transient() bool {
	return c == CodeConflict || c == CodeStorageUnavailable
}
