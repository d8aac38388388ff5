// Package config reads, validates and watches the configuration of a depthview pipeline.
package config

import (
	"go.viam.com/utils"

	"github.com/depthview/depthview/components/base"
	"github.com/depthview/depthview/control"
	"github.com/depthview/depthview/dispatch"
	"github.com/depthview/depthview/frame"
	"github.com/depthview/depthview/posture"
	"github.com/depthview/depthview/recorder"
	"github.com/depthview/depthview/render"
	"github.com/depthview/depthview/resource"
)

// A Config describes one pipeline: where frames come from, how they are dispatched and what is done
// with the derived signal.
type Config struct {
	Source  resource.Config `json:"source"`
	Streams dispatch.Config `json:"streams"`

	// Posture and Command override the sections of the same name inside Streams.
	Posture *posture.Config        `json:"posture,omitempty"`
	Command *posture.CommandConfig `json:"command,omitempty"`

	// Follow enables the command publisher. It requires Base.
	Follow *control.Config  `json:"follow,omitempty"`
	Base   *resource.Config `json:"base,omitempty"`

	Snapshot *render.Config   `json:"snapshot,omitempty"`
	Recorder *recorder.Config `json:"recorder,omitempty"`

	ConfigFilePath string `json:"-"`
}

// Ensure ensures all parts of the config are valid. Resource attributes are converted in place.
func (c *Config) Ensure() error {
	if err := c.Source.Validate("source", frame.API); err != nil {
		return err
	}

	if c.Posture != nil {
		if err := c.Posture.Validate("posture"); err != nil {
			return err
		}
	}
	if c.Command != nil {
		if err := c.Command.Validate("command"); err != nil {
			return err
		}
	}
	streams := c.Dispatch()
	if err := streams.Validate("streams"); err != nil {
		return err
	}

	if c.Follow != nil {
		if err := c.Follow.Validate("follow"); err != nil {
			return err
		}
		if c.Base == nil {
			return utils.NewConfigValidationFieldRequiredError("follow", "base")
		}
	}
	if c.Base != nil {
		if err := c.Base.Validate("base", base.API); err != nil {
			return err
		}
	}

	if c.Snapshot != nil {
		if err := c.Snapshot.Validate("snapshot"); err != nil {
			return err
		}
	}
	if c.Recorder != nil {
		if err := c.Recorder.Validate("recorder"); err != nil {
			return err
		}
	}
	return nil
}

// Dispatch returns the listener config with the top level posture and command sections applied.
func (c *Config) Dispatch() *dispatch.Config {
	streams := c.Streams
	if c.Posture != nil {
		streams.Posture = c.Posture
	}
	if c.Command != nil {
		streams.Command = *c.Command
	}
	return &streams
}
