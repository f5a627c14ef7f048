package core

import "errors"

var (
	// ErrMissingFields is returned when a required request field is absent
	ErrMissingFields = errors.New("missing required fields: ensName, signature, nonce, timestamp")

	// ErrNonceInvalid is returned when a nonce is unknown, malformed,
	// already consumed or past its TTL
	ErrNonceInvalid = errors.New("nonce invalid or expired")

	// ErrTimestampExpired is returned when a timestamp is unparsable or
	// outside the allowed window
	ErrTimestampExpired = errors.New("timestamp expired")

	// ErrInvalidSignature is returned when signature recovery fails
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrNotNameOwner is returned when the signer does not control the claimed name
	ErrNotNameOwner = errors.New("signer is not the owner of the ENS name")

	// ErrUpstreamResolution is returned when ENS resolution was required
	// to establish ownership and the upstream call failed
	ErrUpstreamResolution = errors.New("ENS resolution failed")

	// ErrUserNotFound is returned when no user record exists for a name
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidToken is returned when a session token is tampered or expired
	ErrInvalidToken = errors.New("invalid token")

	// ErrStoreOperationFailed is returned when a store operation fails
	ErrStoreOperationFailed = errors.New("store operation failed")
)
