package ec2

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
)

// fakeAPI answers EC2 calls from its function fields and records every call
// by operation name. Unset fields fail the test.
type fakeAPI struct {
	t *testing.T

	mu    sync.Mutex
	calls []string

	runInstances                 func(*ec2.RunInstancesInput) (*ec2.RunInstancesOutput, error)
	requestSpotInstances         func(*ec2.RequestSpotInstancesInput) (*ec2.RequestSpotInstancesOutput, error)
	describeSpotInstanceRequests func(*ec2.DescribeSpotInstanceRequestsInput) (*ec2.DescribeSpotInstanceRequestsOutput, error)
	cancelSpotInstanceRequests   func(*ec2.CancelSpotInstanceRequestsInput) (*ec2.CancelSpotInstanceRequestsOutput, error)
	createTags                   func(*ec2.CreateTagsInput) (*ec2.CreateTagsOutput, error)
	describeInstances            func(*ec2.DescribeInstancesInput) (*ec2.DescribeInstancesOutput, error)
	terminateInstances           func(*ec2.TerminateInstancesInput) (*ec2.TerminateInstancesOutput, error)
	describeImages               func(*ec2.DescribeImagesInput) (*ec2.DescribeImagesOutput, error)
}

var _ API = (*fakeAPI)(nil)

func (f *fakeAPI) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) Count(op string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == op {
			n++
		}
	}
	return n
}

func unexpected[T any](t *testing.T, op string) (T, error) {
	t.Helper()
	var zero T
	t.Errorf("unexpected %s call", op)
	return zero, fmt.Errorf("unexpected %s call", op)
}

func (f *fakeAPI) RunInstances(_ context.Context, in *ec2.RunInstancesInput, _ ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error) {
	f.record("RunInstances")
	if f.runInstances == nil {
		return unexpected[*ec2.RunInstancesOutput](f.t, "RunInstances")
	}
	return f.runInstances(in)
}

func (f *fakeAPI) RequestSpotInstances(_ context.Context, in *ec2.RequestSpotInstancesInput, _ ...func(*ec2.Options)) (*ec2.RequestSpotInstancesOutput, error) {
	f.record("RequestSpotInstances")
	if f.requestSpotInstances == nil {
		return unexpected[*ec2.RequestSpotInstancesOutput](f.t, "RequestSpotInstances")
	}
	return f.requestSpotInstances(in)
}

func (f *fakeAPI) DescribeSpotInstanceRequests(_ context.Context, in *ec2.DescribeSpotInstanceRequestsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSpotInstanceRequestsOutput, error) {
	f.record("DescribeSpotInstanceRequests")
	if f.describeSpotInstanceRequests == nil {
		return unexpected[*ec2.DescribeSpotInstanceRequestsOutput](f.t, "DescribeSpotInstanceRequests")
	}
	return f.describeSpotInstanceRequests(in)
}

func (f *fakeAPI) CancelSpotInstanceRequests(_ context.Context, in *ec2.CancelSpotInstanceRequestsInput, _ ...func(*ec2.Options)) (*ec2.CancelSpotInstanceRequestsOutput, error) {
	f.record("CancelSpotInstanceRequests")
	if f.cancelSpotInstanceRequests == nil {
		return unexpected[*ec2.CancelSpotInstanceRequestsOutput](f.t, "CancelSpotInstanceRequests")
	}
	return f.cancelSpotInstanceRequests(in)
}

func (f *fakeAPI) CreateTags(_ context.Context, in *ec2.CreateTagsInput, _ ...func(*ec2.Options)) (*ec2.CreateTagsOutput, error) {
	f.record("CreateTags")
	if f.createTags == nil {
		return unexpected[*ec2.CreateTagsOutput](f.t, "CreateTags")
	}
	return f.createTags(in)
}

func (f *fakeAPI) DescribeInstances(_ context.Context, in *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	f.record("DescribeInstances")
	if f.describeInstances == nil {
		return unexpected[*ec2.DescribeInstancesOutput](f.t, "DescribeInstances")
	}
	return f.describeInstances(in)
}

func (f *fakeAPI) TerminateInstances(_ context.Context, in *ec2.TerminateInstancesInput, _ ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error) {
	f.record("TerminateInstances")
	if f.terminateInstances == nil {
		return unexpected[*ec2.TerminateInstancesOutput](f.t, "TerminateInstances")
	}
	return f.terminateInstances(in)
}

func (f *fakeAPI) DescribeImages(_ context.Context, in *ec2.DescribeImagesInput, _ ...func(*ec2.Options)) (*ec2.DescribeImagesOutput, error) {
	f.record("DescribeImages")
	if f.describeImages == nil {
		return unexpected[*ec2.DescribeImagesOutput](f.t, "DescribeImages")
	}
	return f.describeImages(in)
}

// withImage makes the fake know a single image with the given root device.
func (f *fakeAPI) withImage(id, rootDevice string) *fakeAPI {
	f.describeImages = func(in *ec2.DescribeImagesInput) (*ec2.DescribeImagesOutput, error) {
		if len(in.ImageIds) != 1 || in.ImageIds[0] != id {
			return nil, apiError("InvalidAMIID.NotFound")
		}
		return &ec2.DescribeImagesOutput{Images: []types.Image{{
			ImageId:        aws.String(id),
			RootDeviceName: aws.String(rootDevice),
		}}}, nil
	}
	return f
}

// withInstances makes DescribeInstances answer with the next instance of
// 'seq' on every call, repeating the last one.
func (f *fakeAPI) withInstances(seq ...types.Instance) *fakeAPI {
	i := 0
	f.describeInstances = func(in *ec2.DescribeInstancesInput) (*ec2.DescribeInstancesOutput, error) {
		inst := seq[min(i, len(seq)-1)]
		i++
		return &ec2.DescribeInstancesOutput{Reservations: []types.Reservation{{
			Instances: []types.Instance{inst},
		}}}, nil
	}
	return f
}

func apiError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: code}
}

func instance(id string, state types.InstanceStateName, opts ...func(*types.Instance)) types.Instance {
	inst := types.Instance{
		InstanceId: aws.String(id),
		State:      &types.InstanceState{Name: state},
	}
	for _, opt := range opts {
		opt(&inst)
	}
	return inst
}

func withDNS(name string) func(*types.Instance) {
	return func(i *types.Instance) { i.PublicDnsName = aws.String(name) }
}

func withPublicIP(ip string) func(*types.Instance) {
	return func(i *types.Instance) { i.PublicIpAddress = aws.String(ip) }
}

func withPrivateIP(ip string) func(*types.Instance) {
	return func(i *types.Instance) { i.PrivateIpAddress = aws.String(ip) }
}
