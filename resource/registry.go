package resource

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"github.com/depthview/depthview/logging"
	"github.com/depthview/depthview/utils"
)

// A Create builds a resource from its config.
type Create[ResourceT Resource] func(ctx context.Context, conf Config, logger logging.Logger) (ResourceT, error)

// An AttributeMapConverter converts an attribute map into a native config type.
type AttributeMapConverter[ConfigT any] func(attributes AttributeMap) (ConfigT, error)

// Registration describes how to construct one model.
type Registration[ResourceT Resource, ConfigT ConfigValidator] struct {
	Constructor Create[ResourceT]

	// AttributeMapConverter defaults to TransformAttributeMap[ConfigT].
	AttributeMapConverter AttributeMapConverter[ConfigT]
}

var (
	registryMu sync.RWMutex
	registry   = map[APIModel]Registration[Resource, ConfigValidator]{}
)

// Register adds a model for an API. Registering the same pair twice panics.
func Register[ResourceT Resource, ConfigT ConfigValidator](api API, model Model, reg Registration[ResourceT, ConfigT]) {
	registryMu.Lock()
	defer registryMu.Unlock()

	apiModel := APIModel{api, model}
	if _, old := registry[apiModel]; old {
		panic(errors.Errorf("trying to register two resources with same api: %q, model: %q", api, model))
	}
	if reg.Constructor == nil {
		panic(errors.Errorf("cannot register a nil constructor for api: %q, model: %q", api, model))
	}
	if reg.AttributeMapConverter == nil {
		reg.AttributeMapConverter = TransformAttributeMap[ConfigT]
	}
	registry[apiModel] = makeGenericRegistration(reg)
}

// Deregister removes a registration.
func Deregister(api API, model Model) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, APIModel{api, model})
}

// RegisteredModels returns the registered models of an API in sorted order.
func RegisteredModels(api API) []Model {
	registryMu.RLock()
	defer registryMu.RUnlock()
	var models []Model
	for am := range registry {
		if am.API == api {
			models = append(models, am.Model)
		}
	}
	sort.Slice(models, func(i, j int) bool { return models[i] < models[j] })
	return models
}

func lookup(am APIModel) (Registration[Resource, ConfigValidator], bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[am]
	return reg, ok
}

// New builds the configured model of api and asserts the result to ResourceT.
func New[ResourceT Resource](ctx context.Context, api API, conf Config, logger logging.Logger) (ResourceT, error) {
	var zero ResourceT
	reg, ok := lookup(APIModel{api, conf.Model})
	if !ok {
		return zero, errors.Errorf("unknown %s model %q", api, conf.Model)
	}
	if conf.ConvertedAttributes == nil {
		if err := conf.Validate(conf.Name, api); err != nil {
			return zero, err
		}
	}
	res, err := reg.Constructor(ctx, conf, logger)
	if err != nil {
		return zero, err
	}
	typed, ok := res.(ResourceT)
	if !ok {
		return zero, errors.Wrapf(utils.NewUnexpectedTypeError[ResourceT](res), "%s/%s", api, conf.Model)
	}
	return typed, nil
}

// NativeConfig returns the converted attributes of conf as ConfigT.
func NativeConfig[ConfigT any](conf Config) (ConfigT, error) {
	if typed, ok := conf.ConvertedAttributes.(ConfigT); ok {
		return typed, nil
	}
	var zero ConfigT
	return zero, utils.NewUnexpectedTypeError[ConfigT](conf.ConvertedAttributes)
}

func makeGenericRegistration[ResourceT Resource, ConfigT ConfigValidator](
	typed Registration[ResourceT, ConfigT],
) Registration[Resource, ConfigValidator] {
	return Registration[Resource, ConfigValidator]{
		Constructor: func(ctx context.Context, conf Config, logger logging.Logger) (Resource, error) {
			return typed.Constructor(ctx, conf, logger)
		},
		AttributeMapConverter: func(attributes AttributeMap) (ConfigValidator, error) {
			return typed.AttributeMapConverter(attributes)
		},
	}
}

// TransformAttributeMap decodes attributes into T using the json tags of T. Pointer config types are
// allocated first. Unknown keys are an error.
func TransformAttributeMap[T any](attributes AttributeMap) (T, error) {
	var out T
	var forResult interface{}

	toT := reflect.TypeOf(out)
	if toT == nil {
		return out, nil
	}
	if toT.Kind() == reflect.Ptr {
		var ok bool
		out, ok = reflect.New(toT.Elem()).Interface().(T)
		if !ok {
			return out, errors.Errorf("failed to allocate default config type %T", out)
		}
		forResult = out
	} else {
		forResult = &out
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           forResult,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return out, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return out, err
	}
	return out, nil
}
