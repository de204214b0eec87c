// ec2 provides a 'drivers.Provisioner' backed by AWS EC2, for ephemeral test
// instances.
//
// # Create
//
// The purchasing strategy follows the configuration: with a spot price the
// instance is obtained through a spot request, otherwise it is launched on
// demand. In both cases the launch request carries:
//   - the block device mappings, or a single mapping built from the legacy
//     ebs_* settings, after the image has been looked up
//   - the user data, read from a file when the setting names one
//   - the configured tags
//
// A spot request is polled until it is active. Its tags are then applied to
// the instance it launched, since EC2 does not propagate them.
//
// The instance is then polled until it is running and exposes an address
// other than 0.0.0.0. The address comes from the configured interface or, when
// none is set, from the first of DNS name, public IP and private IP present.
// Finally the SSH service on that address is probed, with a per attempt
// timeout and a bounded number of attempts.
//
// # Destroy
//
// The server is looked up by ID and terminated, and its spot request, if any,
// cancelled. A server that is already gone is not an error.
//
// # Errors
//
// EC2 API failures and exhausted readiness polls are returned as
// '*ActionFailedError', carrying the underlying message. Configuration
// problems are returned as '*ConfigError' and an unknown image as
// 'ErrImageNotFound', both before any instance is requested.
package ec2
