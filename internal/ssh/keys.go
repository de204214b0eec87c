package ssh

import (
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"
)

var (
	ErrSSHFailedKeyParse = fmt.Errorf("failed to parse SSH private key")
	ErrSSHFailedKeyRead  = fmt.Errorf("failed to read SSH private key")
)

// ParseKey attempts to parse the provided 'key' value as a PEM-encoded private
// key.
//
// If 'phrase' is provided the key is parsed assuming encryption first, and
// reattempted as plaintext when the passphrase turns out to be unnecessary.
func ParseKey(key, phrase []byte) (ssh.Signer, error) {
	if len(key) == 0 {
		return nil, nil
	}
	if len(phrase) > 0 {
		signer, err := ssh.ParsePrivateKeyWithPassphrase(key, phrase)
		if err == nil {
			return signer, nil
		}
		if !errors.Is(err, x509.IncorrectPasswordError) {
			return nil, fmt.Errorf("%w: %w", ErrSSHFailedKeyParse, err)
		}
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSSHFailedKeyParse, err)
	}
	return signer, nil
}

// LoadKey reads and parses the private key stored at 'path'.
func LoadKey(path string) (ssh.Signer, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSSHFailedKeyRead, err)
	}
	return ParseKey(data, nil)
}
