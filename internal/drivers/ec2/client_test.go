package ec2

import (
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	// keep shared config files on the host out of the credential chain
	dir := t.TempDir()
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	t.Setenv("AWS_PROFILE", "")

	t.Run("static-credentials", func(t *testing.T) {
		cfg := Config{
			Region:          "eu-west-1",
			Endpoint:        "http://127.0.0.1:4566",
			AccessKeyID:     "AKIDSTATIC",
			SecretAccessKey: "static-secret",
			SessionToken:    "static-token",
		}
		client, err := NewClient(t.Context(), cfg)
		require.NoError(t, err)

		opts := client.Options()
		assert.Equal(t, "eu-west-1", opts.Region)
		assert.Equal(t, "http://127.0.0.1:4566", aws.ToString(opts.BaseEndpoint))
		creds, err := opts.Credentials.Retrieve(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "AKIDSTATIC", creds.AccessKeyID)
		assert.Equal(t, "static-secret", creds.SecretAccessKey)
		assert.Equal(t, "static-token", creds.SessionToken)
	})

	t.Run("iam-profile-uses-default-chain", func(t *testing.T) {
		t.Setenv("AWS_ACCESS_KEY_ID", "AKIDENV")
		t.Setenv("AWS_SECRET_ACCESS_KEY", "env-secret")
		t.Setenv("AWS_SESSION_TOKEN", "")

		client, err := NewClient(t.Context(), Config{Region: "us-west-2", UseIAMProfile: true})
		require.NoError(t, err)

		opts := client.Options()
		assert.Nil(t, opts.BaseEndpoint)
		creds, err := opts.Credentials.Retrieve(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "AKIDENV", creds.AccessKeyID)
	})
}
