package ec2

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/chainguard-dev/clog"
)

var ErrSpotRequestIDNil = fmt.Errorf("encountered no error during spot " +
	"request, but the returned request ID was nil")

func spotRequestCreate(ctx context.Context, client API, input *ec2.RequestSpotInstancesInput) (string, error) {
	result, err := client.RequestSpotInstances(ctx, input)
	if err != nil {
		return "", providerError("RequestSpotInstances", err)
	}
	if len(result.SpotInstanceRequests) < 1 || result.SpotInstanceRequests[0].SpotInstanceRequestId == nil {
		return "", providerError("RequestSpotInstances", ErrSpotRequestIDNil)
	}
	id := *result.SpotInstanceRequests[0].SpotInstanceRequestId
	clog.FromContext(ctx).Info("submitted spot request", "spot_request_id", id, "price", aws.ToString(input.SpotPrice))
	return id, nil
}

// spotRequestDescribe looks up 'requestID'. A nil request with a nil error
// means the provider does not know the request yet.
func spotRequestDescribe(ctx context.Context, client API, requestID string) (*types.SpotInstanceRequest, error) {
	result, err := client.DescribeSpotInstanceRequests(ctx, &ec2.DescribeSpotInstanceRequestsInput{
		SpotInstanceRequestIds: []string{requestID},
	})
	if isAPIErrorCode(err, "InvalidSpotInstanceRequestID.NotFound") {
		return nil, nil
	}
	if err != nil {
		return nil, providerError("DescribeSpotInstanceRequests", err)
	}
	for i := range result.SpotInstanceRequests {
		if aws.ToString(result.SpotInstanceRequests[i].SpotInstanceRequestId) == requestID {
			return &result.SpotInstanceRequests[i], nil
		}
	}
	return nil, nil
}

func spotRequestCancel(ctx context.Context, client API, requestID string) error {
	_, err := client.CancelSpotInstanceRequests(ctx, &ec2.CancelSpotInstanceRequestsInput{
		SpotInstanceRequestIds: []string{requestID},
	})
	if isAPIErrorCode(err, "InvalidSpotInstanceRequestID.NotFound") {
		return nil
	}
	return providerError("CancelSpotInstanceRequests", err)
}

func tagsCreate(ctx context.Context, client API, resourceID string, tags []types.Tag) error {
	_, err := client.CreateTags(ctx, &ec2.CreateTagsInput{
		Resources: []string{resourceID},
		Tags:      tags,
	})
	return providerError("CreateTags", err)
}
