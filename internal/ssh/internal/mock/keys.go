package mock

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// ED25519KeyPair is a throwaway identity for a test server or client.
type ED25519KeyPair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// NewED25519KeyPair generates a fresh ED25519 keypair.
func NewED25519KeyPair() (ED25519KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return ED25519KeyPair{}, fmt.Errorf("generating ed25519 keypair: %w", err)
	}
	return ED25519KeyPair{Public: pub, Private: priv}, nil
}

func (kp ED25519KeyPair) Signer() (ssh.Signer, error) {
	return ssh.NewSignerFromKey(kp.Private)
}

func (kp ED25519KeyPair) PublicKey() (ssh.PublicKey, error) {
	return ssh.NewPublicKey(kp.Public)
}

// MarshalPrivateOpenSSH encodes the private half as a PEM 'OPENSSH PRIVATE
// KEY' block, the format written by 'ssh-keygen'.
func (kp ED25519KeyPair) MarshalPrivateOpenSSH(comment string) ([]byte, error) {
	block, err := ssh.MarshalPrivateKey(kp.Private, comment)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(block), nil
}
