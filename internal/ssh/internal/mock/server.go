package mock

import (
	"errors"
	"net"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

type (
	// Server is a minimal SSH server accepting 'session' channels and
	// answering every 'exec' request with exit status 0.
	//
	// Server is constructed by 'NewServer' and starts listening on a random
	// loopback port with 'Start'. It is shut down automatically when the test
	// finishes.
	Server struct {
		// The SSH server configuration.
		//
		// These options may be modified _prior_ to calling 'Start', modifying
		// after will have no effect.
		Config *ssh.ServerConfig

		listener net.Listener
		wg       sync.WaitGroup
		execs    chan string
	}

	// PubKeyCallback is the function called when the server receives an
	// authentication attempt via public key. Any non-nil error returned will
	// immediately abort the connection.
	PubKeyCallback func(ssh.ConnMetadata, ssh.PublicKey) (*ssh.Permissions, error)
)

func NewServer(t *testing.T, signer ssh.Signer, fn PubKeyCallback) *Server {
	t.Helper()
	require.NotNil(t, fn, "a non-nil public key callback is required")
	require.NotNil(t, signer, "a non-nil ssh.Signer is required")
	config := &ssh.ServerConfig{
		PublicKeyCallback: fn,
	}
	config.AddHostKey(signer)
	return &Server{
		Config: config,
		execs:  make(chan string, 64),
	}
}

// Start begins serving connections, returning the host and port it listens
// on.
func (s *Server) Start(t *testing.T) (string, uint16) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s.listener = listener
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(func() {
		_ = listener.Close()
		s.wg.Wait()
	})
	host, port, err := net.SplitHostPort(listener.Addr().String())
	require.NoError(t, err)
	p, err := strconv.ParseUint(port, 10, 16)
	require.NoError(t, err)
	return host, uint16(p)
}

// Execs produces every command received via an 'exec' request.
func (s *Server) Execs() <-chan string {
	return s.execs
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if errors.Is(err, net.ErrClosed) {
			return
		}
		if err != nil {
			continue
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// handleConn attempts an SSH handshake over 'conn'. Failed handshakes (bad
// credentials, clients hanging up after the banner) simply drop the
// connection.
func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()
	sshConn, chans, reqs, err := ssh.NewServerConn(conn, s.Config)
	if err != nil {
		return
	}
	defer sshConn.Close()
	go ssh.DiscardRequests(reqs)
	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			_ = newChannel.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		channel, requests, err := newChannel.Accept()
		if err != nil {
			continue
		}
		s.handleSession(channel, requests)
	}
}

func (s *Server) handleSession(channel ssh.Channel, requests <-chan *ssh.Request) {
	defer channel.Close()
	for req := range requests {
		if req.Type != "exec" {
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
			continue
		}
		cmd, err := unmarshalExec(req.Payload)
		if req.WantReply {
			_ = req.Reply(err == nil, nil)
		}
		if err != nil {
			continue
		}
		select {
		case s.execs <- cmd:
		default:
		}
		_, _ = channel.SendRequest("exit-status", false, marshalExitStatus(0))
		return
	}
}
