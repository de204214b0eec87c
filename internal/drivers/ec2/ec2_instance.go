package ec2

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/chainguard-dev/clog"
)

var (
	ErrInstanceCreateNoInstances = fmt.Errorf("encountered no error during " +
		"instance launch, but no instance was actually created")
	ErrInstanceCreateIDNil = fmt.Errorf("encountered no error during instance " +
		"launch, but the returned instance ID was nil")
)

func instanceCreate(ctx context.Context, client API, input *ec2.RunInstancesInput) (*types.Instance, error) {
	result, err := client.RunInstances(ctx, input)
	if err != nil {
		return nil, providerError("RunInstances", err)
	}
	if len(result.Instances) < 1 {
		return nil, providerError("RunInstances", ErrInstanceCreateNoInstances)
	}
	instance := &result.Instances[0]
	if instance.InstanceId == nil {
		return nil, providerError("RunInstances", ErrInstanceCreateIDNil)
	}
	clog.FromContext(ctx).Info("launched instance", "id", aws.ToString(instance.InstanceId))
	return instance, nil
}

// instanceDescribe looks up 'instanceID'. A nil instance with a nil error
// means the provider does not know the instance.
func instanceDescribe(ctx context.Context, client API, instanceID string) (*types.Instance, error) {
	result, err := client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if isAPIErrorCode(err, "InvalidInstanceID.NotFound") {
		return nil, nil
	}
	if err != nil {
		return nil, providerError("DescribeInstances", err)
	}
	for _, reservation := range result.Reservations {
		for i := range reservation.Instances {
			if aws.ToString(reservation.Instances[i].InstanceId) == instanceID {
				return &reservation.Instances[i], nil
			}
		}
	}
	return nil, nil
}

func instanceDelete(ctx context.Context, client API, instanceID string) error {
	_, err := client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if isAPIErrorCode(err, "InvalidInstanceID.NotFound") {
		return nil
	}
	return providerError("TerminateInstances", err)
}

func instanceStateName(inst *types.Instance) types.InstanceStateName {
	if inst == nil || inst.State == nil {
		return ""
	}
	return inst.State.Name
}
