// Package werror defines the typed error kinds shared by every
// sub-protocol. The protocol assumes an honest-majority synchronous
// model: nothing in this package is retried, and every kind is
// classified critical unless a wrapped inner error says otherwise.
package werror

import "fmt"

// Kind enumerates the specific failure modes surfaced by this module.
type Kind int

const (
	// Crypto.
	InvalidSignature Kind = iota
	InvalidVerifyingKey
	SignatureAlgorithmMismatch
	EllipticCurveMismatch
	UnsupportedHashFunction
	UnsupportedSignatureEncoding
	UnsupportedKeyEncoding
	UnsupportedEllipticCurve
	UnsupportedSignatureAlgorithm

	// Identity / request.
	UnauthorizedParty
	StaleRequest
	InvalidRequestSignature
	TagMismatch

	// Quorum.
	InsufficientApprovals
	DuplicateApproval
	InvalidApprovalSignature

	// Augmented wrapper.
	MissingParams
	UnexpectedAttestation

	// Orchestrator.
	OutOfOrderMessage
	InvalidInput
	AlreadyPicked

	// Engine-specific.
	BadFSDKRThreshold

	// Wrapped.
	Core
	StateMachine
)

var kindNames = map[Kind]string{
	InvalidSignature:              "invalid_signature",
	InvalidVerifyingKey:           "invalid_verifying_key",
	SignatureAlgorithmMismatch:    "signature_algorithm_mismatch",
	EllipticCurveMismatch:         "elliptic_curve_mismatch",
	UnsupportedHashFunction:       "unsupported_hash_function",
	UnsupportedSignatureEncoding:  "unsupported_signature_encoding",
	UnsupportedKeyEncoding:        "unsupported_key_encoding",
	UnsupportedEllipticCurve:      "unsupported_elliptic_curve",
	UnsupportedSignatureAlgorithm: "unsupported_signature_algorithm",
	UnauthorizedParty:             "unauthorized_party",
	StaleRequest:                  "stale_request",
	InvalidRequestSignature:       "invalid_request_signature",
	TagMismatch:                   "tag_mismatch",
	InsufficientApprovals:         "insufficient_approvals",
	DuplicateApproval:             "duplicate_approval",
	InvalidApprovalSignature:      "invalid_approval_signature",
	MissingParams:                 "missing_params",
	UnexpectedAttestation:         "unexpected_attestation",
	OutOfOrderMessage:             "out_of_order_message",
	InvalidInput:                  "invalid_input",
	AlreadyPicked:                 "already_picked",
	BadFSDKRThreshold:             "bad_fsdkr_threshold",
	Core:                          "core",
	StateMachine:                  "state_machine",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the single error type returned across this module's public
// API. BadActors carries offending party indices for MissingParams;
// Wrapped carries an inner error for Core/StateMachine.
type Error struct {
	Kind      Kind
	BadActors []int
	Wrapped   error
}

// New builds an Error of the given kind with no further detail.
func New(kind Kind) *Error {
	return &Error{Kind: kind}
}

// WithBadActors attaches offending party indices, used for MissingParams.
func WithBadActors(kind Kind, badActors []int) *Error {
	return &Error{Kind: kind, BadActors: badActors}
}

// Wrap wraps an inner error, preserving its criticality per the
// Core/StateMachine delegation rule.
func Wrap(kind Kind, inner error) *Error {
	return &Error{Kind: kind, Wrapped: inner}
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("wamu: %s: %v", e.Kind, e.Wrapped)
	}
	if len(e.BadActors) > 0 {
		return fmt.Sprintf("wamu: %s (bad actors: %v)", e.Kind, e.BadActors)
	}
	return fmt.Sprintf("wamu: %s", e.Kind)
}

// Unwrap exposes the wrapped error, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Critical reports whether e represents a critical, non-retriable
// failure. Wrapped Core/StateMachine errors delegate to the inner error
// if it implements the same interface; every other kind is critical.
func (e *Error) Critical() bool {
	if e.Wrapped != nil {
		if c, ok := e.Wrapped.(interface{ Critical() bool }); ok {
			return c.Critical()
		}
	}
	return true
}

// Is allows errors.Is(err, werror.New(kind)) comparisons by kind.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}
