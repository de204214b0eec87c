// Package platforms is the read-only table of default machine images and
// login accounts, keyed by platform name.
package platforms

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultUsername is returned for platforms without a known login account.
const DefaultUsername = "root"

// Lookup resolves platform defaults.
type Lookup interface {
	// Image returns the default image ID for 'platform' in 'region'.
	Image(region, platform string) (string, bool)
	// Username returns the login account baked into the images of
	// 'platform', falling back to 'DefaultUsername'.
	Username(platform string) string
}

type platform struct {
	Username string            `yaml:"username"`
	Images   map[string]string `yaml:"images"`
}

// Table is a Lookup backed by a static document.
type Table struct {
	Platforms map[string]platform `yaml:"platforms"`
}

var _ Lookup = (*Table)(nil)

//go:embed platforms.yaml
var builtin []byte

// Default returns the table shipped with this package.
func Default() *Table {
	t, err := Parse(bytes.NewReader(builtin))
	if err != nil {
		panic(fmt.Sprintf("parsing embedded platforms table: %v", err))
	}
	return t
}

// Parse reads a platforms table from YAML.
func Parse(r io.Reader) (*Table, error) {
	t := &Table{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(t); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decoding platforms table: %w", err)
	}
	if t.Platforms == nil {
		t.Platforms = map[string]platform{}
	}
	return t, nil
}

func (t *Table) Image(region, name string) (string, bool) {
	p, ok := t.Platforms[normalize(name)]
	if !ok {
		return "", false
	}
	id, ok := p.Images[region]
	return id, ok && id != ""
}

func (t *Table) Username(name string) string {
	if p, ok := t.Platforms[normalize(name)]; ok && p.Username != "" {
		return p.Username
	}
	return DefaultUsername
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
