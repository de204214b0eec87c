package ec2

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/chainguard-dev/clog"
)

// blockDeviceMappings translates the configured mappings, or the single
// legacy mapping when none are configured, into launch request mappings.
//
// The image is looked up first: an unknown image fails the translation. A
// mapping that targets the image's root device is sent unchanged and EC2
// decides which one wins.
func blockDeviceMappings(ctx context.Context, client API, cfg Config) ([]types.BlockDeviceMapping, error) {
	devices := cfg.BlockDeviceMappings
	if len(devices) == 0 {
		devices = []BlockDevice{cfg.legacyBlockDevice()}
	}

	image, err := imageDescribe(ctx, client, cfg.ImageID)
	if err != nil {
		return nil, err
	}
	root := aws.ToString(image.RootDeviceName)
	for _, bd := range devices {
		if root != "" && bd.DeviceName == root {
			clog.FromContext(ctx).Info("block device mapping overrides the image root device",
				"image_id", cfg.ImageID, "device_name", root)
			break
		}
	}

	out := make([]types.BlockDeviceMapping, 0, len(devices))
	for _, bd := range devices {
		out = append(out, bd.mapping())
	}
	return out, nil
}

func (bd BlockDevice) mapping() types.BlockDeviceMapping {
	m := types.BlockDeviceMapping{
		DeviceName: aws.String(bd.DeviceName),
		Ebs: &types.EbsBlockDevice{
			VolumeSize:          bd.VolumeSize,
			DeleteOnTermination: bd.DeleteOnTermination,
		},
	}
	if bd.VolumeType != "" {
		m.Ebs.VolumeType = types.VolumeType(bd.VolumeType)
	}
	if bd.SnapshotID != "" {
		m.Ebs.SnapshotId = aws.String(bd.SnapshotID)
	}
	if bd.VirtualName != "" {
		m.VirtualName = aws.String(bd.VirtualName)
	}
	return m
}
