package ec2

import (
	"encoding/base64"
	"os"
)

// resolveUserData turns the configured user data into the payload sent to
// EC2. An unset value yields 'ok == false' and must be omitted from the
// request; a value naming an existing file yields the file's contents; any
// other value is used literally.
func resolveUserData(value string) (payload string, ok bool, err error) {
	if value == "" {
		return "", false, nil
	}
	info, err := os.Stat(value)
	if err != nil || info.IsDir() {
		return value, true, nil
	}
	// #nosec G304
	data, err := os.ReadFile(value)
	if err != nil {
		return "", false, configErrorf("user_data", "reading %s: %v", value, err)
	}
	return string(data), true, nil
}

// encodedUserData returns the base64 user data for a launch request, or nil
// when none is configured.
func encodedUserData(value string) (*string, error) {
	payload, ok, err := resolveUserData(value)
	if err != nil || !ok {
		return nil, err
	}
	if len(payload) > maxUserDataSize {
		return nil, configErrorf("user_data", "size %d exceeds the %d byte limit", len(payload), maxUserDataSize)
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(payload))
	return &encoded, nil
}

// maxUserDataSize is the EC2 limit on user data before base64 encoding.
const maxUserDataSize = 16 * 1024
