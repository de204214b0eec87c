package ec2

import (
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/chainguard-dev/imagetest-ec2/internal/platforms"
	"github.com/chainguard-dev/imagetest-ec2/internal/wait"
	"gopkg.in/yaml.v3"
	"k8s.io/utils/ptr"
)

// ToolName identifies resources created by this driver.
const ToolName = "imagetest-ec2"

// Config configures the EC2 driver.
type Config struct {
	// Provider endpoint
	Region   string `yaml:"region"`   // default: $AWS_REGION, then us-west-2
	Endpoint string `yaml:"endpoint"` // optional EC2 endpoint override

	// Credentials. Required unless UseIAMProfile is set, default to the
	// standard AWS_* environment variables.
	AccessKeyID     string `yaml:"aws_access_key_id"`
	SecretAccessKey string `yaml:"aws_secret_access_key"`
	SessionToken    string `yaml:"aws_session_token"`
	UseIAMProfile   bool   `yaml:"use_iam_profile"`
	SSHKeyID        string `yaml:"aws_ssh_key_id"` // EC2 key pair name

	// Placement
	AvailabilityZone string   `yaml:"availability_zone"` // a bare letter is prefixed with the region
	SubnetID         string   `yaml:"subnet_id"`
	SecurityGroupIDs []string `yaml:"security_group_ids"`
	PrivateIPAddress string   `yaml:"private_ip_address"`

	// Sizing and image
	InstanceType string `yaml:"instance_type"` // default: t3.medium
	EBSOptimized bool   `yaml:"ebs_optimized"`
	ImageID      string `yaml:"image_id"` // default: platforms table
	Platform     string `yaml:"platform"`

	IAMProfileName string            `yaml:"iam_profile_name"`
	Tags           map[string]string `yaml:"tags"` // default: created-by=imagetest-ec2
	UserData       string            `yaml:"user_data"`

	// Purchasing. A non-empty SpotPrice selects spot instances.
	SpotPrice     string `yaml:"price"`
	InstanceCount int32  `yaml:"instance_count"` // default: 1

	AssociatePublicIP *bool         `yaml:"associate_public_ip"` // default: true iff SubnetID is set
	Interface         InterfaceType `yaml:"interface"`

	// Remote service readiness
	SSHTimeout int    `yaml:"ssh_timeout"` // seconds per attempt, default: 1
	SSHRetries int    `yaml:"ssh_retries"` // default: 3
	SSHKey     string `yaml:"ssh_key"`     // private key used to log in, optional
	SSHPort    uint16 `yaml:"ssh_port"`    // default: 22
	Username   string `yaml:"username"`    // default: platforms table

	// Instance and spot request readiness. Zero tries and timeout poll
	// forever.
	RetryableSleep int `yaml:"retryable_sleep"` // seconds, default: 5
	RetryableTries int `yaml:"retryable_tries"`
	ReadyTimeout   int `yaml:"ready_timeout"` // seconds

	BlockDeviceMappings []BlockDevice `yaml:"block_device_mappings"`

	// Deprecated: use BlockDeviceMappings.
	EBSVolumeSize          *int32 `yaml:"ebs_volume_size"`
	EBSVolumeType          string `yaml:"ebs_volume_type"`
	EBSDeleteOnTermination *bool  `yaml:"ebs_delete_on_termination"`
	EBSSnapshotID          string `yaml:"ebs_snapshot_id"`
	EBSDeviceName          string `yaml:"ebs_device_name"`
	EBSVirtualName         string `yaml:"ebs_virtual_name"`
	// Deprecated: use InstanceType.
	FlavorID string `yaml:"flavor_id"`
}

// BlockDevice describes a volume attached to the instance at launch.
type BlockDevice struct {
	VolumeSize          *int32 `yaml:"ebs_volume_size"`
	VolumeType          string `yaml:"ebs_volume_type"`
	DeleteOnTermination *bool  `yaml:"ebs_delete_on_termination"`
	SnapshotID          string `yaml:"ebs_snapshot_id"`
	DeviceName          string `yaml:"ebs_device_name"`
	VirtualName         string `yaml:"ebs_virtual_name"`
}

// LoadConfig reads a YAML driver configuration from 'path', applies defaults
// and validates the result.
func LoadConfig(path string, lookup platforms.Lookup) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}
	cfg.ApplyDefaults(lookup)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills unset fields from the environment, the platforms table
// and the driver defaults.
func (c *Config) ApplyDefaults(lookup platforms.Lookup) {
	envDefault(&c.Region, "AWS_REGION")
	if c.Region == "" {
		c.Region = "us-west-2"
	}
	if !c.UseIAMProfile {
		envDefault(&c.AccessKeyID, "AWS_ACCESS_KEY_ID")
		envDefault(&c.SecretAccessKey, "AWS_SECRET_ACCESS_KEY")
		envDefault(&c.SessionToken, "AWS_SESSION_TOKEN")
	}
	envDefault(&c.SSHKeyID, "AWS_SSH_KEY_ID")
	if len(c.AvailabilityZone) == 1 {
		c.AvailabilityZone = c.Region + c.AvailabilityZone
	}
	if c.InstanceType == "" {
		c.InstanceType = c.FlavorID
	}
	if c.InstanceType == "" {
		c.InstanceType = string(types.InstanceTypeT3Medium)
	}
	if c.Tags == nil {
		c.Tags = map[string]string{"created-by": ToolName}
	}
	if c.InstanceCount == 0 {
		c.InstanceCount = 1
	}
	if c.AssociatePublicIP == nil {
		c.AssociatePublicIP = ptr.To(c.SubnetID != "")
	}
	if c.SSHTimeout == 0 {
		c.SSHTimeout = 1
	}
	if c.SSHRetries == 0 {
		c.SSHRetries = 3
	}
	if c.SSHPort == 0 {
		c.SSHPort = 22
	}
	if c.RetryableSleep == 0 {
		c.RetryableSleep = 5
	}
	if lookup != nil {
		if c.ImageID == "" && c.Platform != "" {
			if id, ok := lookup.Image(c.Region, c.Platform); ok {
				c.ImageID = id
			}
		}
		if c.Username == "" {
			c.Username = lookup.Username(c.Platform)
		}
	}
	if c.Username == "" {
		c.Username = platforms.DefaultUsername
	}
}

func envDefault(field *string, key string) {
	if *field == "" {
		*field = os.Getenv(key)
	}
}

// Validate reports the first configuration problem found as a
// '*ConfigError'.
func (c Config) Validate() error {
	if c.ImageID == "" {
		return configErrorf("image_id", "required (no default image for platform %q in region %q)", c.Platform, c.Region)
	}
	if c.UseIAMProfile {
		if c.AccessKeyID != "" || c.SecretAccessKey != "" || c.SessionToken != "" {
			return configErrorf("use_iam_profile", "explicit credentials must not be set when using the instance IAM profile")
		}
	} else {
		if c.AccessKeyID == "" {
			return configErrorf("aws_access_key_id", "required unless use_iam_profile is set")
		}
		if c.SecretAccessKey == "" {
			return configErrorf("aws_secret_access_key", "required unless use_iam_profile is set")
		}
	}
	if c.Interface != "" && !c.Interface.Valid() {
		return invalidInterface(c.Interface)
	}
	for i, bd := range c.BlockDeviceMappings {
		if bd.VolumeSize == nil || bd.DeleteOnTermination == nil || bd.DeviceName == "" {
			return configErrorf(
				"block_device_mappings",
				"entry %d must include ebs_volume_size, ebs_delete_on_termination and ebs_device_name",
				i,
			)
		}
	}
	if c.InstanceCount < 1 {
		return configErrorf("instance_count", "must be at least 1, got %d", c.InstanceCount)
	}
	if c.SSHTimeout < 0 || c.SSHRetries < 0 {
		return configErrorf("ssh_timeout", "ssh_timeout and ssh_retries must not be negative")
	}
	if c.RetryableSleep < 0 || c.RetryableTries < 0 || c.ReadyTimeout < 0 {
		return configErrorf("retryable_sleep", "retryable_sleep, retryable_tries and ready_timeout must not be negative")
	}
	return nil
}

// Deprecations lists the deprecated settings in use, one message each.
func (c Config) Deprecations() []string {
	var msgs []string
	legacy := []struct {
		key string
		set bool
	}{
		{"ebs_volume_size", c.EBSVolumeSize != nil},
		{"ebs_volume_type", c.EBSVolumeType != ""},
		{"ebs_delete_on_termination", c.EBSDeleteOnTermination != nil},
		{"ebs_snapshot_id", c.EBSSnapshotID != ""},
		{"ebs_device_name", c.EBSDeviceName != ""},
		{"ebs_virtual_name", c.EBSVirtualName != ""},
	}
	for _, l := range legacy {
		if l.set {
			msgs = append(msgs, fmt.Sprintf("%s is deprecated, use block_device_mappings", l.key))
		}
	}
	if c.FlavorID != "" {
		msgs = append(msgs, "flavor_id is deprecated, use instance_type")
	}
	return msgs
}

// legacyBlockDevice synthesizes the single mapping used when no
// BlockDeviceMappings are configured.
func (c Config) legacyBlockDevice() BlockDevice {
	bd := BlockDevice{
		VolumeSize:          c.EBSVolumeSize,
		VolumeType:          c.EBSVolumeType,
		DeleteOnTermination: c.EBSDeleteOnTermination,
		SnapshotID:          c.EBSSnapshotID,
		DeviceName:          c.EBSDeviceName,
		VirtualName:         c.EBSVirtualName,
	}
	if bd.VolumeSize == nil {
		bd.VolumeSize = ptr.To[int32](8)
	}
	if bd.VolumeType == "" {
		bd.VolumeType = string(types.VolumeTypeStandard)
	}
	if bd.DeleteOnTermination == nil {
		bd.DeleteOnTermination = ptr.To(true)
	}
	if bd.DeviceName == "" {
		bd.DeviceName = "/dev/sda1"
	}
	return bd
}

func (c Config) associatePublicIP() bool {
	return ptr.Deref(c.AssociatePublicIP, false)
}

// instancePolicy is the poll policy for instance and spot request readiness.
func (c Config) instancePolicy() wait.Policy {
	return wait.Policy{
		Interval:    time.Duration(c.RetryableSleep) * time.Second,
		MaxAttempts: c.RetryableTries,
		Timeout:     time.Duration(c.ReadyTimeout) * time.Second,
	}
}

// remotePolicy is the poll policy for the remote service readiness check.
func (c Config) remotePolicy() wait.Policy {
	timeout := time.Duration(c.SSHTimeout) * time.Second
	return wait.Policy{
		Interval:       timeout,
		MaxAttempts:    c.SSHRetries,
		AttemptTimeout: timeout,
	}
}
