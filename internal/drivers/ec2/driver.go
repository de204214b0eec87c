package ec2

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/imagetest-ec2/internal/drivers"
	"github.com/chainguard-dev/imagetest-ec2/internal/o11y"
	"github.com/chainguard-dev/imagetest-ec2/internal/ssh"
	"github.com/chainguard-dev/imagetest-ec2/internal/wait"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"k8s.io/utils/clock"
)

var _ drivers.Provisioner = (*Driver)(nil)

var tracer = otel.Tracer("github.com/chainguard-dev/imagetest-ec2/internal/drivers/ec2")

// Prober performs a single readiness check of the remote service.
type Prober func(ctx context.Context, target ssh.Target) error

type Driver struct {
	cfg    Config
	client API

	// target is the remote service template, completed with the hostname
	// once it is known.
	target ssh.Target
	probe  Prober

	clock          clock.Clock
	instancePolicy wait.Policy
	remotePolicy   wait.Policy
}

type Option func(*Driver)

// WithClock replaces the clock driving every readiness poll.
func WithClock(clk clock.Clock) Option {
	return func(d *Driver) { d.clock = clk }
}

// WithInstancePolicy overrides the poll policy for instance and spot request
// readiness.
func WithInstancePolicy(p wait.Policy) Option {
	return func(d *Driver) { d.instancePolicy = p }
}

// WithRemotePolicy overrides the poll policy for remote service readiness.
func WithRemotePolicy(p wait.Policy) Option {
	return func(d *Driver) { d.remotePolicy = p }
}

func WithProber(p Prober) Option {
	return func(d *Driver) { d.probe = p }
}

// New validates 'cfg' and returns a Driver issuing its EC2 calls through
// 'client'. 'cfg' is expected to have been through 'ApplyDefaults'.
func New(cfg Config, client API, opts ...Option) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Driver{
		cfg:    cfg,
		client: client,
		target: ssh.Target{
			Port: cfg.SSHPort,
			User: cfg.Username,
		},
		probe:          ssh.Probe,
		clock:          clock.RealClock{},
		instancePolicy: cfg.instancePolicy(),
		remotePolicy:   cfg.remotePolicy(),
	}
	if cfg.SSHKey != "" {
		signer, err := ssh.LoadKey(cfg.SSHKey)
		if err != nil {
			return nil, configErrorf("ssh_key", "%v", err)
		}
		d.target.Signer = signer
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Create launches an instance and blocks until it has an address and its
// remote service accepts connections. It is a no-op when 'state' already
// names a server.
//
// Provider failures and exhausted readiness waits are returned as
// '*ActionFailedError' together with whatever state was recorded before the
// failure, so the caller can still destroy a half created instance.
func (d *Driver) Create(ctx context.Context, state drivers.State) (drivers.State, error) {
	log := clog.FromContext(ctx).With(o11y.AttrDriver, "ec2")
	if state.ServerID != "" {
		log.Info("server already exists, skipping create", o11y.AttrServerID, state.ServerID)
		return state, nil
	}

	st := d.selectStrategy()
	ctx, span := tracer.Start(ctx, "ec2.create", trace.WithAttributes(
		attribute.String(o11y.AttrStrategy, st.name()),
		attribute.String(o11y.AttrImageID, d.cfg.ImageID),
		attribute.String(o11y.AttrInstanceType, d.cfg.InstanceType),
	))
	defer span.End()

	log = log.With(o11y.AttrStrategy, st.name())
	ctx = clog.WithLogger(ctx, log)
	for _, msg := range d.cfg.Deprecations() {
		log.Warn(msg)
	}

	state, err := d.create(ctx, st, state)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("create failed", o11y.AttrServerID, state.ServerID, "error", err)
		return state, actionFailed(err)
	}
	span.SetAttributes(attribute.String(o11y.AttrServerID, state.ServerID))
	log.Info("server ready", o11y.AttrServerID, state.ServerID, o11y.AttrHostname, state.Hostname)
	return state, nil
}

func (d *Driver) create(ctx context.Context, st strategy, state drivers.State) (drivers.State, error) {
	log := clog.FromContext(ctx)

	if !d.instancePolicy.Bounded() {
		log.Debug("instance readiness wait has no attempt or time limit", "interval", d.instancePolicy.Interval)
	}
	log.Info("submitting instance request")
	out, err := traced(ctx, "ec2.submit", func(ctx context.Context) (launched, error) {
		return st.submit(ctx)
	})
	state.SpotRequestID = out.spotRequestID
	if err != nil {
		return state, err
	}
	state.ServerID = aws.ToString(out.instance.InstanceId)
	log = log.With(o11y.AttrServerID, state.ServerID)
	ctx = clog.WithLogger(ctx, log)

	hostname, err := traced(ctx, "ec2.await_instance", func(ctx context.Context) (string, error) {
		return d.awaitInstance(ctx, state.ServerID)
	})
	if err != nil {
		return state, fmt.Errorf("waiting for instance %s: %w", state.ServerID, err)
	}
	state.Hostname = hostname
	log.Info("instance running", o11y.AttrHostname, hostname)

	_, err = traced(ctx, "ec2.await_ssh", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, d.awaitRemote(ctx, hostname)
	})
	return state, err
}

// traced runs 'fn' in a child span named 'name', recording its error.
func traced[T any](ctx context.Context, name string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()
	v, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return v, err
}

// awaitInstance polls until the instance is running with a usable address and
// returns that address.
func (d *Driver) awaitInstance(ctx context.Context, instanceID string) (string, error) {
	log := clog.FromContext(ctx)
	var hostname string
	err := wait.Until(ctx, d.clock, d.instancePolicy, func(ctx context.Context) (bool, error) {
		inst, err := instanceDescribe(ctx, d.client, instanceID)
		if err != nil || inst == nil {
			return false, err
		}
		switch state := instanceStateName(inst); state {
		case types.InstanceStateNameRunning:
		case types.InstanceStateNameShuttingDown, types.InstanceStateNameTerminated:
			return false, providerError("DescribeInstances",
				fmt.Errorf("instance %s is %s: %s", instanceID, state, stateReason(inst)))
		default:
			log.Debug("instance not running yet", "state", state)
			return false, nil
		}
		host, err := Hostname(inst, d.cfg.Interface)
		if err != nil {
			return false, err
		}
		if host == "" || host == nullAddress {
			log.Debug("instance has no usable address yet", "address", host)
			return false, nil
		}
		hostname = host
		return true, nil
	})
	return hostname, err
}

func stateReason(inst *types.Instance) string {
	if inst.StateReason == nil {
		return "no reason given"
	}
	return aws.ToString(inst.StateReason.Message)
}

// awaitRemote polls the remote service on 'hostname' until it accepts
// connections or the remote policy gives up.
func (d *Driver) awaitRemote(ctx context.Context, hostname string) error {
	log := clog.FromContext(ctx)
	target := d.target
	target.Host = hostname
	addr := net.JoinHostPort(hostname, strconv.Itoa(int(target.Port)))

	log.Info("waiting for SSH", "target", addr)
	err := wait.Until(ctx, d.clock, d.remotePolicy, func(ctx context.Context) (bool, error) {
		if err := d.probe(ctx, target); err != nil {
			log.Debug("SSH not ready", "target", addr, "error", err)
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("waiting for SSH on %s: %w", addr, err)
	}
	return nil
}

// Destroy terminates the server named by 'state', along with its spot
// request if it has one, and returns an empty state. It is a no-op when
// 'state' names no server, and a server the provider no longer knows counts
// as already destroyed.
//
// On failure the state is returned unchanged so the call can be retried.
func (d *Driver) Destroy(ctx context.Context, state drivers.State) (drivers.State, error) {
	if state.ServerID == "" {
		return state, nil
	}
	ctx, span := tracer.Start(ctx, "ec2.destroy", trace.WithAttributes(
		attribute.String(o11y.AttrServerID, state.ServerID),
	))
	defer span.End()
	log := clog.FromContext(ctx).With(o11y.AttrDriver, "ec2", o11y.AttrServerID, state.ServerID)
	ctx = clog.WithLogger(ctx, log)

	if err := d.destroy(ctx, state); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return state, actionFailed(err)
	}
	log.Info("server destroyed")
	return drivers.State{}, nil
}

func (d *Driver) destroy(ctx context.Context, state drivers.State) error {
	log := clog.FromContext(ctx)

	inst, err := instanceDescribe(ctx, d.client, state.ServerID)
	if err != nil {
		return err
	}

	var s stack
	if state.SpotRequestID != "" {
		s.Push("spot-request", func(ctx context.Context) error {
			log.Info("cancelling spot request", o11y.AttrSpotRequestID, state.SpotRequestID)
			return spotRequestCancel(ctx, d.client, state.SpotRequestID)
		})
	}
	if inst == nil || instanceStateName(inst) == types.InstanceStateNameTerminated {
		log.Info("server already gone, nothing to terminate")
	} else {
		s.Push("instance", func(ctx context.Context) error {
			log.Info("terminating instance", "state", instanceStateName(inst))
			return instanceDelete(ctx, d.client, state.ServerID)
		})
	}
	return s.Destroy(ctx)
}
