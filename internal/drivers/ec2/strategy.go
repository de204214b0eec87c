package ec2

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/chainguard-dev/clog"
	"github.com/chainguard-dev/imagetest-ec2/internal/wait"
	"github.com/google/uuid"
)

// launched is what a strategy hands back after submission.
type launched struct {
	instance *types.Instance
	// spotRequestID is set by the spot strategy as soon as the request
	// exists, even when a later step fails.
	spotRequestID string
}

// strategy is a purchasing model for a single instance.
type strategy interface {
	name() string
	submit(ctx context.Context) (launched, error)
}

type (
	onDemand struct{ d *Driver }
	spot     struct{ d *Driver }
)

// selectStrategy picks spot purchasing when a price is configured.
func (d *Driver) selectStrategy() strategy {
	if d.cfg.SpotPrice != "" {
		return spot{d: d}
	}
	return onDemand{d: d}
}

// launchParams holds the request fields shared by both strategies.
type launchParams struct {
	mappings []types.BlockDeviceMapping
	userData *string
	tags     []types.Tag
}

func (d *Driver) launchParams(ctx context.Context) (launchParams, error) {
	userData, err := encodedUserData(d.cfg.UserData)
	if err != nil {
		return launchParams{}, err
	}
	mappings, err := blockDeviceMappings(ctx, d.client, d.cfg)
	if err != nil {
		return launchParams{}, err
	}
	return launchParams{
		mappings: mappings,
		userData: userData,
		tags:     tagList(d.cfg.Tags),
	}, nil
}

func (d *Driver) iamProfile() *types.IamInstanceProfileSpecification {
	if d.cfg.IAMProfileName == "" {
		return nil
	}
	return &types.IamInstanceProfileSpecification{Name: aws.String(d.cfg.IAMProfileName)}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}

func (onDemand) name() string { return "on-demand" }

func (s onDemand) submit(ctx context.Context) (launched, error) {
	cfg := s.d.cfg
	params, err := s.d.launchParams(ctx)
	if err != nil {
		return launched{}, err
	}

	input := &ec2.RunInstancesInput{
		ImageId:             aws.String(cfg.ImageID),
		InstanceType:        types.InstanceType(cfg.InstanceType),
		MinCount:            aws.Int32(1),
		MaxCount:            aws.Int32(1),
		KeyName:             optional(cfg.SSHKeyID),
		EbsOptimized:        aws.Bool(cfg.EBSOptimized),
		BlockDeviceMappings: params.mappings,
		UserData:            params.userData,
		IamInstanceProfile:  s.d.iamProfile(),
		ClientToken:         aws.String(uuid.NewString()),
		TagSpecifications: tagSpecifications(
			params.tags,
			types.ResourceTypeInstance,
			types.ResourceTypeVolume,
		),
	}
	if cfg.AvailabilityZone != "" {
		input.Placement = &types.Placement{AvailabilityZone: aws.String(cfg.AvailabilityZone)}
	}
	// EC2 only accepts the public IP flag on a network interface
	// specification, which then owns the subnet and security groups.
	if cfg.associatePublicIP() {
		input.NetworkInterfaces = []types.InstanceNetworkInterfaceSpecification{{
			DeviceIndex:              aws.Int32(0),
			AssociatePublicIpAddress: aws.Bool(true),
			DeleteOnTermination:      aws.Bool(true),
			SubnetId:                 optional(cfg.SubnetID),
			Groups:                   cfg.SecurityGroupIDs,
			PrivateIpAddress:         optional(cfg.PrivateIPAddress),
		}}
	} else {
		input.SubnetId = optional(cfg.SubnetID)
		input.SecurityGroupIds = cfg.SecurityGroupIDs
		input.PrivateIpAddress = optional(cfg.PrivateIPAddress)
	}

	instance, err := instanceCreate(ctx, s.d.client, input)
	if err != nil {
		return launched{}, err
	}
	return launched{instance: instance}, nil
}

func (spot) name() string { return "spot" }

func (s spot) submit(ctx context.Context) (launched, error) {
	cfg := s.d.cfg
	log := clog.FromContext(ctx)
	params, err := s.d.launchParams(ctx)
	if err != nil {
		return launched{}, err
	}

	spec := &types.RequestSpotLaunchSpecification{
		ImageId:             aws.String(cfg.ImageID),
		InstanceType:        types.InstanceType(cfg.InstanceType),
		KeyName:             optional(cfg.SSHKeyID),
		EbsOptimized:        aws.Bool(cfg.EBSOptimized),
		BlockDeviceMappings: params.mappings,
		UserData:            params.userData,
		IamInstanceProfile:  s.d.iamProfile(),
		SubnetId:            optional(cfg.SubnetID),
		SecurityGroupIds:    cfg.SecurityGroupIDs,
	}
	if cfg.AvailabilityZone != "" {
		spec.Placement = &types.SpotPlacement{AvailabilityZone: aws.String(cfg.AvailabilityZone)}
	}

	requestID, err := spotRequestCreate(ctx, s.d.client, &ec2.RequestSpotInstancesInput{
		SpotPrice:           aws.String(cfg.SpotPrice),
		InstanceCount:       aws.Int32(cfg.InstanceCount),
		ClientToken:         aws.String(uuid.NewString()),
		LaunchSpecification: spec,
		TagSpecifications:   tagSpecifications(params.tags, types.ResourceTypeSpotInstancesRequest),
	})
	if err != nil {
		return launched{}, err
	}
	out := launched{spotRequestID: requestID}

	var instanceID string
	log.Info("waiting for spot request to become active", "spot_request_id", requestID)
	err = wait.Until(ctx, s.d.clock, s.d.instancePolicy, func(ctx context.Context) (bool, error) {
		req, err := spotRequestDescribe(ctx, s.d.client, requestID)
		if err != nil || req == nil {
			return false, err
		}
		switch req.State {
		case types.SpotInstanceStateActive:
			instanceID = aws.ToString(req.InstanceId)
			return instanceID != "", nil
		case types.SpotInstanceStateFailed, types.SpotInstanceStateCancelled, types.SpotInstanceStateClosed:
			var status string
			if req.Status != nil {
				status = aws.ToString(req.Status.Message)
			}
			return false, providerError("DescribeSpotInstanceRequests",
				fmt.Errorf("spot request %s is %s: %s", requestID, req.State, status))
		}
		log.Debug("spot request not active yet", "spot_request_id", requestID, "state", req.State)
		return false, nil
	})
	if err != nil {
		return out, fmt.Errorf("waiting for spot request %s: %w", requestID, err)
	}
	log.Info("spot request active", "spot_request_id", requestID, "id", instanceID)

	// Request tags are not propagated to the instances a request launches.
	if len(params.tags) > 0 {
		if err := tagsCreate(ctx, s.d.client, instanceID, params.tags); err != nil {
			return out, err
		}
	}

	instance, err := instanceDescribe(ctx, s.d.client, instanceID)
	if err != nil {
		return out, err
	}
	if instance == nil {
		instance = &types.Instance{InstanceId: aws.String(instanceID)}
	}
	out.instance = instance
	return out, nil
}
