package config

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
	"gopkg.in/yaml.v3"

	"github.com/depthview/depthview/logging"
)

// Read reads a config from the given file. $VAR and ${VAR} references are expanded from the
// environment before decoding.
func Read(
	ctx context.Context,
	filePath string,
	logger logging.Logger,
) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	return FromReader(ctx, filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from. Files ending in .yaml or .yml are decoded
// as YAML, files ending in .json5 as JSON5 (comments and unquoted keys allowed), anything else
// as JSON.
func FromReader(
	ctx context.Context,
	originalPath string,
	r io.Reader,
	logger logging.Logger,
) (*Config, error) {
	cfg := Config{
		ConfigFilePath: originalPath,
	}

	var dec *json.Decoder
	switch format := formatOf(originalPath); format {
	case formatYAML, formatJSON5:
		convert := yamlToJSON
		if format == formatJSON5 {
			convert = json5ToJSON
		}
		asJSON, err := convert(r)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode Config from %s", format)
		}
		dec = json.NewDecoder(bytes.NewReader(asJSON))
	default:
		dec = json.NewDecoder(r)
	}
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to decode Config from json")
	}

	if err := cfg.Ensure(); err != nil {
		return nil, errors.Wrapf(err, "failed to process Config")
	}
	logger.Debugw("read config", "path", originalPath, "source", cfg.Source.Model)
	return &cfg, nil
}

const (
	formatJSON  = "json"
	formatJSON5 = "json5"
	formatYAML  = "yaml"
)

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	case ".json5":
		return formatJSON5
	default:
		return formatJSON
	}
}

// yamlToJSON re-encodes a YAML document as JSON so that both formats share the json tags of Config.
func yamlToJSON(r io.Reader) ([]byte, error) {
	var doc interface{}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return []byte("{}"), nil
		}
		return nil, err
	}
	return json.Marshal(doc)
}

// json5ToJSON re-encodes a JSON5 document as plain JSON.
func json5ToJSON(r io.Reader) ([]byte, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var doc interface{}
	if err := json5.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}
