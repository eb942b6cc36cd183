package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/openscreen/openscreen-go/pkg/ipaddr"
	"github.com/openscreen/openscreen-go/pkg/wire"
)

// fileConfig is the optional YAML configuration. Flags given on the
// command line take precedence over values from the file.
type fileConfig struct {
	Interface            string            `yaml:"interface"`
	Endpoint             *ipaddr.Endpoint  `yaml:"endpoint"`
	FriendlyName         string            `yaml:"friendly_name"`
	ModelName            string            `yaml:"model_name"`
	PrivateKey           string            `yaml:"private_key"`
	DeveloperCertificate string            `yaml:"developer_certificate"`
	DisableDiscovery     *bool             `yaml:"disable_discovery"`
	DisableDSCP          *bool             `yaml:"disable_dscp"`
	MaxBitrate           int               `yaml:"max_bitrate"`
	Codecs               []wire.VideoCodec `yaml:"codecs"`

	KeepAlive struct {
		Period      time.Duration `yaml:"period"`
		IdleTimeout time.Duration `yaml:"idle_timeout"`
	} `yaml:"keepalive"`

	Trace struct {
		Categories string `yaml:"categories"`
		File       string `yaml:"file"`
	} `yaml:"trace"`
}

// parseFileConfig decodes a YAML configuration. Unknown keys are errors;
// an empty document is not.
func parseFileConfig(data []byte) (*fileConfig, error) {
	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &fc, nil
}

// loadFileConfig reads and decodes the configuration at path.
func loadFileConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	fc, err := parseFileConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fc, nil
}

// apply copies file values into opts for every flag not set explicitly.
func (fc *fileConfig) apply(opts *options, explicit map[string]bool) {
	setString := func(flagName string, dst *string, v string) {
		if v != "" && !explicit[flagName] {
			*dst = v
		}
	}
	setBool := func(flagName string, dst *bool, v *bool) {
		if v != nil && !explicit[flagName] {
			*dst = *v
		}
	}

	setString("friendly-name", &opts.friendlyName, fc.FriendlyName)
	setString("model-name", &opts.modelName, fc.ModelName)
	setString("private-key", &opts.privateKey, fc.PrivateKey)
	setString("developer-certificate", &opts.developerCert, fc.DeveloperCertificate)
	setString("trace-categories", &opts.trace.Categories, fc.Trace.Categories)
	setString("trace-file", &opts.trace.File, fc.Trace.File)
	setBool("disable-discovery", &opts.disableDiscovery, fc.DisableDiscovery)
	setBool("disable-dscp", &opts.disableDSCP, fc.DisableDSCP)

	if fc.MaxBitrate != 0 && !explicit["max-bitrate"] {
		opts.maxBitrate = fc.MaxBitrate
	}
	if fc.Endpoint != nil {
		opts.endpoint = fc.Endpoint
		if explicit["port"] {
			opts.endpoint.Port = uint16(opts.port)
		}
	}
	if len(fc.Codecs) > 0 {
		opts.codecs = fc.Codecs
	}
	if fc.KeepAlive.Period > 0 {
		opts.keepAlive.KeepAlivePeriod = fc.KeepAlive.Period
	}
	if fc.KeepAlive.IdleTimeout > 0 {
		opts.keepAlive.IdleTimeout = fc.KeepAlive.IdleTimeout
	}
	opts.iface = fc.Interface
}
