package mock

import (
	"fmt"

	"golang.org/x/crypto/ssh"
)

var ErrUnauthorized = fmt.Errorf("public key is not authorized")

// AuthorizedKeys admits any login user offering one of 'keys'. The offered
// user name is recorded in the returned permissions.
func AuthorizedKeys(keys ...ssh.PublicKey) PubKeyCallback {
	authorized := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		authorized[ssh.FingerprintSHA256(key)] = struct{}{}
	}
	return func(conn ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
		if _, ok := authorized[ssh.FingerprintSHA256(key)]; !ok {
			return nil, fmt.Errorf("%w: %s for %s", ErrUnauthorized, ssh.FingerprintSHA256(key), conn.User())
		}
		return &ssh.Permissions{Extensions: map[string]string{"user": conn.User()}}, nil
	}
}
