package domain

import "errors"

var (
	// ErrSetupFailed signals that a provider could not be instantiated or
	// its Setup call raised. The instance stays registered in failed state.
	ErrSetupFailed = errors.New("provider setup failed")

	// ErrMediaNotFound signals that a lookup by id/path found nothing.
	ErrMediaNotFound = errors.New("media item not found")

	// ErrProviderUnavailable signals that an operation targeted a provider
	// instance or domain that is not currently registered.
	ErrProviderUnavailable = errors.New("provider unavailable")
)
