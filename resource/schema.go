package resource

import (
	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
)

// AttributeSchema returns the JSON schema of the attributes accepted by a registered model.
func AttributeSchema(api API, model Model) (*jsonschema.Schema, error) {
	reg, ok := lookup(APIModel{api, model})
	if !ok {
		return nil, errors.Errorf("unknown %s model %q", api, model)
	}
	empty, err := reg.AttributeMapConverter(AttributeMap{})
	if err != nil {
		return nil, errors.Wrapf(err, "cannot build an empty %s/%s config", api, model)
	}
	return jsonschema.Reflect(empty), nil
}
