package cli

import (
	"errors"

	"github.com/vijay-prabhu/mailforward/internal/auth"
)

// isAuthError reports errors that another attempt cannot fix without the user
func isAuthError(err error) bool {
	return errors.Is(err, auth.ErrDeviceCodeExpired) || errors.Is(err, auth.ErrRefreshFailed)
}
