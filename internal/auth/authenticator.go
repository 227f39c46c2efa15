package auth

import (
	"context"

	"github.com/Jaiharishan/Split-Generator-Backend/internal/models"
)

// Authenticator defines the interface for authentication implementations.
// The account service only depends on this, so other credential types can be
// added without touching it.
type Authenticator interface {
	// Register creates a new free-tier account with the given email and credential.
	// The credential format depends on the implementation.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate verifies the user's credentials and returns the user if successful.
	// Returns an error if authentication fails.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error
}
