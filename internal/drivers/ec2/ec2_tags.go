package ec2

import (
	"maps"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// tagList converts configured tags to EC2 tags, sorted by key so requests are
// deterministic.
func tagList(tags map[string]string) []types.Tag {
	out := make([]types.Tag, 0, len(tags))
	for _, k := range slices.Sorted(maps.Keys(tags)) {
		out = append(out, types.Tag{
			Key:   aws.String(k),
			Value: aws.String(tags[k]),
		})
	}
	return out
}

// tagSpecifications produces one tag specification per resource type, all
// carrying 'tags'. No specifications are produced without tags, since EC2
// rejects empty ones.
//
// A 'TagSpecification' is just AWS' term for metadata, defined as key-value
// pairs, associated with a particular 'types.ResourceType'.
func tagSpecifications(tags []types.Tag, rts ...types.ResourceType) []types.TagSpecification {
	if len(tags) == 0 {
		return nil
	}
	specs := make([]types.TagSpecification, 0, len(rts))
	for _, rt := range rts {
		specs = append(specs, types.TagSpecification{
			ResourceType: rt,
			Tags:         tags,
		})
	}
	return specs
}
