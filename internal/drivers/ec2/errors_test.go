package ec2

import (
	"errors"
	"fmt"
	"testing"

	"github.com/chainguard-dev/imagetest-ec2/internal/wait"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionFailed(t *testing.T) {
	require.NoError(t, actionFailed(nil))

	t.Run("provider-error-keeps-message", func(t *testing.T) {
		cause := apiError("InsufficientInstanceCapacity")
		err := actionFailed(fmt.Errorf("waiting for instance i-1: %w", providerError("DescribeInstances", cause)))

		var failed *ActionFailedError
		require.ErrorAs(t, err, &failed)
		assert.Equal(t, cause.Error(), err.Error())
		assert.ErrorIs(t, err, cause)
	})

	t.Run("joined-provider-errors-keep-every-message", func(t *testing.T) {
		terminate := apiError("UnauthorizedOperation")
		cancel := apiError("RequestLimitExceeded")
		joined := errors.Join(
			providerError("TerminateInstances", terminate),
			providerError("CancelSpotInstanceRequests", cancel),
		)
		err := actionFailed(joined)

		var failed *ActionFailedError
		require.ErrorAs(t, err, &failed)
		assert.Equal(t, joined.Error(), err.Error())
		assert.ErrorIs(t, err, terminate)
		assert.ErrorIs(t, err, cancel)
	})

	t.Run("readiness-exhausted", func(t *testing.T) {
		cause := fmt.Errorf("waiting for SSH on 1.2.3.4:22: %w", wait.ErrAttemptsExhausted)
		err := actionFailed(cause)

		var failed *ActionFailedError
		require.ErrorAs(t, err, &failed)
		assert.Equal(t, cause.Error(), err.Error())
	})

	t.Run("deadline", func(t *testing.T) {
		var failed *ActionFailedError
		require.ErrorAs(t, actionFailed(wait.ErrTimeout), &failed)
	})

	t.Run("idempotent", func(t *testing.T) {
		first := actionFailed(providerError("RunInstances", errors.New("boom")))
		assert.Same(t, first, actionFailed(first))
	})

	t.Run("others-untouched", func(t *testing.T) {
		cerr := configErrorf("interface", "bad")
		assert.Equal(t, error(cerr), actionFailed(cerr))

		notFound := fmt.Errorf("%w: ami-1", ErrImageNotFound)
		assert.Equal(t, notFound, actionFailed(notFound))
	})
}

func TestCountProviderErrors(t *testing.T) {
	one := providerError("RunInstances", errors.New("boom"))
	assert.Equal(t, 0, countProviderErrors(nil))
	assert.Equal(t, 0, countProviderErrors(errors.New("boom")))
	assert.Equal(t, 1, countProviderErrors(fmt.Errorf("launching: %w", one)))
	assert.Equal(t, 2, countProviderErrors(errors.Join(one, fmt.Errorf("wrapped: %w", one), errors.New("other"))))
}

func TestIsAPIErrorCode(t *testing.T) {
	err := fmt.Errorf("describe: %w", apiError("InvalidInstanceID.NotFound"))
	assert.True(t, isAPIErrorCode(err, "InvalidAMIID.NotFound", "InvalidInstanceID.NotFound"))
	assert.False(t, isAPIErrorCode(err, "InvalidAMIID.NotFound"))
	assert.False(t, isAPIErrorCode(errors.New("InvalidInstanceID.NotFound"), "InvalidInstanceID.NotFound"))
	assert.False(t, isAPIErrorCode(nil, "InvalidInstanceID.NotFound"))
}
