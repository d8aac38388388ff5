// Package base defines the velocity command channel of a mobile base and the registry its models
// are built from.
package base

import (
	"context"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/depthview/depthview/logging"
	"github.com/depthview/depthview/resource"
)

// API is the registry API bases are registered under.
const API = resource.API("base")

// A Base represents a physical base of a robot that accepts velocity commands.
type Base interface {
	resource.Resource

	// SetVelocity sets the linear velocity (m/s) and angular velocity (rad/s) of the base. It does
	// not block until the base reaches the velocity.
	SetVelocity(ctx context.Context, linear, angular r3.Vector, extra map[string]interface{}) error

	// Stop stops the base. It is assumed the base stops immediately.
	Stop(ctx context.Context, extra map[string]interface{}) error
}

// Register registers a base model.
func Register[ConfigT resource.ConfigValidator](model resource.Model, reg resource.Registration[Base, ConfigT]) {
	resource.Register(API, model, reg)
}

// FromConfig builds the registered base model named by conf.
func FromConfig(ctx context.Context, conf resource.Config, logger logging.Logger) (Base, error) {
	b, err := resource.New[Base](ctx, API, conf, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot build base %q", conf.Name)
	}
	return b, nil
}
