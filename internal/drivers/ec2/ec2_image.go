package ec2

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

func imageDescribe(ctx context.Context, client API, imageID string) (*types.Image, error) {
	result, err := client.DescribeImages(ctx, &ec2.DescribeImagesInput{
		ImageIds: []string{imageID},
	})
	if isAPIErrorCode(err, "InvalidAMIID.NotFound", "InvalidAMIID.Malformed", "InvalidAMIID.Unavailable") {
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, imageID)
	}
	if err != nil {
		return nil, providerError("DescribeImages", err)
	}
	if len(result.Images) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrImageNotFound, imageID)
	}
	return &result.Images[0], nil
}
