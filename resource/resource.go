// Package resource contains the model registry shared by frame sources and bases, along with the
// configuration block each registered model is built from.
package resource

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// An API names a kind of pluggable resource, e.g. "frame_source" or "base".
type API string

// A Model names one implementation of an API, e.g. "fake" or "mqtt".
type Model string

// APIModel is the tuple a registration is keyed by.
type APIModel struct {
	API   API
	Model Model
}

func (am APIModel) String() string {
	return fmt.Sprintf("%s/%s", am.API, am.Model)
}

// A Resource is anything built from the registry. Every resource must release what it holds on Close.
type Resource interface {
	Close(ctx context.Context) error
}

// AttributeMap is the free form attribute block of a Config.
type AttributeMap map[string]interface{}

// Has returns whether the key is present.
func (am AttributeMap) Has(key string) bool {
	_, ok := am[key]
	return ok
}

// Config describes one configured resource.
type Config struct {
	Name       string       `json:"name"`
	Model      Model        `json:"model"`
	Attributes AttributeMap `json:"attributes,omitempty"`

	// ConvertedAttributes holds the model specific attributes after Validate.
	ConvertedAttributes ConfigValidator `json:"-"`
}

// A ConfigValidator validates a model's native configuration.
type ConfigValidator interface {
	Validate(path string) error
}

// NoNativeConfig is used by models with no attributes.
type NoNativeConfig struct{}

// Validate always succeeds.
func (NoNativeConfig) Validate(path string) error {
	return nil
}

// Validate ensures the config names a registered model of api and that the model's attributes are
// valid. The decoded attributes are kept in ConvertedAttributes.
func (conf *Config) Validate(path string, api API) error {
	if conf.Model == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "model")
	}
	reg, ok := lookup(APIModel{api, conf.Model})
	if !ok {
		return utils.NewConfigValidationError(path, errors.Errorf("unknown %s model %q", api, conf.Model))
	}
	converted, err := reg.AttributeMapConverter(conf.Attributes)
	if err != nil {
		return utils.NewConfigValidationError(path, errors.Wrap(err, "error converting attributes"))
	}
	if err := converted.Validate(path + ".attributes"); err != nil {
		return err
	}
	conf.ConvertedAttributes = converted
	return nil
}
