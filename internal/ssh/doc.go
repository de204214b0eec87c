// ssh implements a facade over the 'x/crypto/ssh' package, simplifying the
// following workflows:
//   - ED25519 key generation and private key loading
//   - SSH client construction and single command execution
//   - readiness probing of freshly booted hosts
//
// NOTE: ALL errors returned by this package will be wrapped with well-known (
// 'errors.Is(...') errors.
package ssh
