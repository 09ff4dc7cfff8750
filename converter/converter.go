// Package converter holds the body codecs used to encode request payloads and
// decode successful response bodies.
package converter

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-restclient/core"
	"gopkg.in/yaml.v3"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeYAML = "application/yaml"
)

type JSON struct {
	// DisallowUnknownFields rejects response bodies carrying fields the
	// target type does not declare.
	DisallowUnknownFields bool
}

func (JSON) ContentType() string {
	return ContentTypeJSON
}

func (c JSON) FromBody(body []byte, target any) error {
	if target == nil {
		return fmt.Errorf("converter: json target is nil")
	}
	decoder := json.NewDecoder(bytes.NewReader(body))
	if c.DisallowUnknownFields {
		decoder.DisallowUnknownFields()
	}
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("converter: decode json: %w", err)
	}
	return nil
}

func (JSON) ToBody(value any) ([]byte, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("converter: encode json: %w", err)
	}
	return encoded, nil
}

type YAML struct{}

func (YAML) ContentType() string {
	return ContentTypeYAML
}

func (YAML) FromBody(body []byte, target any) error {
	if target == nil {
		return fmt.Errorf("converter: yaml target is nil")
	}
	if err := yaml.Unmarshal(body, target); err != nil {
		return fmt.Errorf("converter: decode yaml: %w", err)
	}
	return nil
}

func (YAML) ToBody(value any) ([]byte, error) {
	encoded, err := yaml.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("converter: encode yaml: %w", err)
	}
	return encoded, nil
}

var (
	_ core.Converter = JSON{}
	_ core.Converter = YAML{}
)
