package backends

import (
	"errors"
	"fmt"
	"strings"

	"nathanbeddoewebdev/nodectl/internal/node/domain"
	"nathanbeddoewebdev/nodectl/internal/services/auth"
)

// resolveCredentials fills in whatever the node does not carry from the
// token stored for backend. Stored tokens are either a bare secret or an
// "id:secret" pair, where id is an access key ID or a BMC user.
// A missing stored token is not an error; the backend decides what it
// requires.
func resolveCredentials(backend string, node domain.NodeRef, store auth.Store) (domain.Credentials, error) {
	creds := node.Credentials
	if creds.Secret != "" || store == nil {
		return creds, nil
	}

	token, err := store.GetToken(backend)
	if errors.Is(err, auth.ErrTokenNotFound) {
		return creds, nil
	}
	if err != nil {
		return creds, fmt.Errorf("%s auth: %w", backend, err)
	}

	id, secret, paired := strings.Cut(token, ":")
	if !paired {
		creds.Secret = token
		return creds, nil
	}
	creds.Secret = secret
	if creds.User == "" {
		creds.User = id
	}
	if creds.KeyID == "" {
		creds.KeyID = id
	}
	return creds, nil
}
