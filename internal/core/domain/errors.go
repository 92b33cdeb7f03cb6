package domain

import "errors"

// Kind classifies domain errors so transports can map them to a stable
// status without inspecting messages.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindDuplicate     Kind = "duplicate"
	KindUnauthorized  Kind = "unauthorized"
	KindForbidden     Kind = "forbidden"
	KindProofNotFound Kind = "proof_not_found"
	KindNotFound      Kind = "not_found"
	KindExternal      Kind = "external"
)

// Error is a sentinel domain error. Call sites add detail by wrapping it:
//
//	fmt.Errorf("%w: substrate address must start with 0x", ErrInvalidAddressFormat)
type Error struct {
	Kind Kind
	Code string
	msg  string
}

func (e *Error) Error() string { return e.msg }

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, msg: msg}
}

var (
	ErrInvalidAddressFormat = newError(KindValidation, "invalid_address_format", "invalid address format")
	ErrInvalidUsername      = newError(KindValidation, "invalid_username", "invalid username")
	ErrUnknownNetwork       = newError(KindValidation, "unknown_network", "network not found")
	ErrInvalidPlatform      = newError(KindValidation, "invalid_platform", "platform not supported")

	ErrDuplicateWallet        = newError(KindDuplicate, "duplicate_wallet", "wallet already exists")
	ErrDuplicateUsername      = newError(KindDuplicate, "duplicate_username", "username already taken")
	ErrPlatformAlreadyClaimed = newError(KindDuplicate, "platform_already_claimed", "another account on this platform is already claimed by this wallet")

	ErrInvalidNonce             = newError(KindUnauthorized, "invalid_nonce", "invalid nonce")
	ErrUnauthorizedCredential   = newError(KindUnauthorized, "unauthorized_credential", "wallet not registered")
	ErrSignatureVerification    = newError(KindUnauthorized, "signature_verification_failed", "signature verification failed")
	ErrUnsupportedSigningScheme = newError(KindUnauthorized, "unsupported_signing_scheme", "unsupported signing scheme")

	ErrForbidden = newError(KindForbidden, "forbidden", "access forbidden")

	ErrProofNotFound = newError(KindProofNotFound, "proof_not_found", "public key not found in recent posts")

	ErrUserNotFound       = newError(KindNotFound, "user_not_found", "user not found")
	ErrWalletNotFound     = newError(KindNotFound, "wallet_not_found", "wallet not found")
	ErrPeopleNotFound     = newError(KindNotFound, "people_not_found", "people not found")
	ErrCredentialNotFound = newError(KindNotFound, "credential_not_found", "user credential not found")

	ErrExternalService = newError(KindExternal, "external_service", "external service unavailable")
)

// AccessError is the single error shape login failures leave the
// authenticator with. Cause keeps the original failure for logs and
// errors.Is checks; Error() exposes only its message.
type AccessError struct {
	Kind  Kind
	Cause error
}

func (e *AccessError) Error() string {
	if e.Cause == nil {
		return string(e.Kind)
	}
	return e.Cause.Error()
}

func (e *AccessError) Unwrap() error { return e.Cause }

// KindOf reports the kind of err, preferring an enclosing AccessError over
// any sentinel it wraps. Unknown errors yield "".
func KindOf(err error) Kind {
	var ae *AccessError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// CodeOf returns the stable code of the innermost sentinel in err, if any.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
