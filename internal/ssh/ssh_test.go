package ssh

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/chainguard-dev/imagetest-ec2/internal/ssh/internal/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// identities produces a "user" signer authorized by a mock server, along with
// the server's host key.
func identities(t *testing.T) (ssh.Signer, *mock.Server, ssh.PublicKey) {
	t.Helper()
	userKeys, err := mock.NewED25519KeyPair()
	require.NoError(t, err)
	userSigner, err := userKeys.Signer()
	require.NoError(t, err)
	userPubKey, err := userKeys.PublicKey()
	require.NoError(t, err)

	serverKeys, err := mock.NewED25519KeyPair()
	require.NoError(t, err)
	serverSigner, err := serverKeys.Signer()
	require.NoError(t, err)
	serverPubKey, err := serverKeys.PublicKey()
	require.NoError(t, err)

	server := mock.NewServer(t, serverSigner, mock.AuthorizedKeys(userPubKey))
	return userSigner, server, serverPubKey
}

func TestSSH(t *testing.T) {
	userSigner, server, serverPubKey := identities(t)
	host, port := server.Start(t)

	client, err := Connect(t.Context(), host, port, "hellope", userSigner, serverPubKey)
	require.NoError(t, err)
	defer client.Close()

	_, _, err = Exec(client, "echo 'Hello, world!'")
	require.NoError(t, err)
	select {
	case cmd := <-server.Execs():
		assert.Equal(t, "echo 'Hello, world!'", cmd)
	case <-time.After(2 * time.Second):
		t.Fatal("exec request never reached the server")
	}
}

func TestConnectRejectsUnknownHostKey(t *testing.T) {
	userSigner, server, _ := identities(t)
	host, port := server.Start(t)

	other, err := mock.NewED25519KeyPair()
	require.NoError(t, err)
	otherPub, err := other.PublicKey()
	require.NoError(t, err)

	_, err = Connect(t.Context(), host, port, "hellope", userSigner, otherPub)
	require.ErrorIs(t, err, ErrSSHFailedDial)
}

func TestProbe(t *testing.T) {
	t.Run("login", func(t *testing.T) {
		userSigner, server, _ := identities(t)
		host, port := server.Start(t)

		ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
		defer cancel()
		require.NoError(t, Probe(ctx, Target{Host: host, Port: port, User: "ubuntu", Signer: userSigner}))
		assert.Equal(t, "true", <-server.Execs())
	})

	t.Run("login-unauthorized", func(t *testing.T) {
		_, server, _ := identities(t)
		host, port := server.Start(t)
		stranger, err := mock.NewED25519KeyPair()
		require.NoError(t, err)
		signer, err := stranger.Signer()
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
		defer cancel()
		require.ErrorIs(t, Probe(ctx, Target{Host: host, Port: port, User: "ubuntu", Signer: signer}), ErrSSHFailedDial)
	})

	t.Run("banner", func(t *testing.T) {
		_, server, _ := identities(t)
		host, port := server.Start(t)

		ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
		defer cancel()
		require.NoError(t, Probe(ctx, Target{Host: host, Port: port}))
	})

	t.Run("silent-listener", func(t *testing.T) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer listener.Close()
		go func() {
			for {
				conn, err := listener.Accept()
				if err != nil {
					return
				}
				// Hold the connection open without greeting.
				defer conn.Close()
			}
		}()
		addr := listener.Addr().(*net.TCPAddr)

		ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
		defer cancel()
		err = Probe(ctx, Target{Host: "127.0.0.1", Port: uint16(addr.Port)})
		require.ErrorIs(t, err, ErrNoBanner)
	})

	t.Run("nothing-listening", func(t *testing.T) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := listener.Addr().(*net.TCPAddr)
		require.NoError(t, listener.Close())

		ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
		defer cancel()
		require.ErrorIs(t, Probe(ctx, Target{Host: "127.0.0.1", Port: uint16(addr.Port)}), ErrSSHFailedDial)
	})
}

func TestJoinHostPort(t *testing.T) {
	ctx := t.Context()
	// invalid ip4 address
	s, err := joinHostPort(ctx, "192.168.255.", 33)
	assert.Error(t, err)
	assert.Equal(t, "", s)
	// invalid ipv6 address
	s, err = joinHostPort(ctx, "2001:db8:3333:4444:5555:6666:7777", 33)
	assert.Error(t, err)
	assert.Equal(t, "", s)
	// valid ipv4 address
	s, err = joinHostPort(ctx, "192.168.255.50", 33)
	assert.NoError(t, err)
	assert.Equal(t, "192.168.255.50:33", s)
	// valid ipv6 address
	s, err = joinHostPort(ctx, "2001:db8:3333:4444:5555:6666:7777:8888", 33)
	assert.NoError(t, err)
	assert.Equal(t, "[2001:db8:3333:4444:5555:6666:7777:8888]:33", s)
	// valid hostname
	s, err = joinHostPort(ctx, "localhost", 33)
	assert.NoError(t, err)
	assert.Contains(t, []string{"127.0.0.1:33", "[::1]:33"}, s)
}
