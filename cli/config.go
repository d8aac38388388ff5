package cli

import (
	"encoding/json"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/depthview/depthview/config"
	"github.com/depthview/depthview/resource"
)

// ConfigValidateAction reads and validates a pipeline config and lists the sections it sets.
func ConfigValidateAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("config validate takes exactly one config")
	}
	cfg, err := config.Read(c.Context, c.Args().First(), loggerFor(c))
	if err != nil {
		return err
	}
	successf(c.App.Writer, "%s is valid", c.Args().First())
	printf(c.App.Writer, "source: %s (%s)", cfg.Source.Name, cfg.Source.Model)
	printf(c.App.Writer, "display: %s", displayOf(cfg))
	if sections := optionalSections(cfg); len(sections) > 0 {
		printf(c.App.Writer, "enabled: %s", strings.Join(sections, ", "))
	}
	if cfg.Follow != nil && cfg.Base != nil {
		printf(c.App.Writer, "follows with base: %s (%s)", cfg.Base.Name, cfg.Base.Model)
	}
	return nil
}

func displayOf(cfg *config.Config) string {
	if d := cfg.Dispatch().Display; d != "" {
		return string(d)
	}
	return "color"
}

func optionalSections(cfg *config.Config) []string {
	var sections []string
	if cfg.Posture != nil {
		sections = append(sections, "posture")
	}
	if cfg.Command != nil {
		sections = append(sections, "command")
	}
	if cfg.Follow != nil {
		sections = append(sections, config.SectionFollow)
	}
	if cfg.Base != nil {
		sections = append(sections, config.SectionBase)
	}
	if cfg.Snapshot != nil {
		sections = append(sections, config.SectionSnapshot)
	}
	if cfg.Recorder != nil {
		sections = append(sections, config.SectionRecorder)
	}
	return sections
}

// ConfigDiffAction prints the sections that differ between two configs and the textual diff.
func ConfigDiffAction(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return errors.New("config diff takes an old and a new config")
	}
	leftPath, rightPath := c.Args().Get(0), c.Args().Get(1)
	if same, err := samePath(leftPath, rightPath); err == nil && same {
		warningf(c.App.ErrWriter, "comparing %s with itself", leftPath)
	}

	logger := loggerFor(c)
	left, err := config.Read(c.Context, leftPath, logger)
	if err != nil {
		return errors.Wrapf(err, "cannot read %s", leftPath)
	}
	right, err := config.Read(c.Context, rightPath, logger)
	if err != nil {
		return errors.Wrapf(err, "cannot read %s", rightPath)
	}
	diff, err := config.DiffConfigs(*left, *right, c.Bool(configFlagReveal))
	if err != nil {
		return err
	}

	changed := diff.Changed()
	if len(changed) == 0 {
		successf(c.App.Writer, "configs are equivalent")
		return nil
	}
	printf(c.App.Writer, "changed: %s", strings.Join(changed, ", "))
	if diff.NeedsRestart() {
		infof(c.App.Writer, "a running pipeline needs a restart to apply these changes")
	} else {
		infof(c.App.Writer, "a running pipeline applies these changes live")
	}
	printf(c.App.Writer, "%s", diff.String())
	return nil
}

// ConfigSchemaAction prints the JSON schema of a pipeline config, or of the attributes of one
// registered model. Given only an API it lists the registered models of that API.
func ConfigSchemaAction(c *cli.Context) error {
	var schema *jsonschema.Schema
	switch c.Args().Len() {
	case 0:
		schema = jsonschema.Reflect(&config.Config{})
	case 1:
		api := resource.API(c.Args().First())
		models := resource.RegisteredModels(api)
		if len(models) == 0 {
			return errors.Errorf("no models registered for %q", api)
		}
		for _, model := range models {
			printf(c.App.Writer, "%s", model)
		}
		return nil
	case 2:
		var err error
		schema, err = resource.AttributeSchema(resource.API(c.Args().Get(0)), resource.Model(c.Args().Get(1)))
		if err != nil {
			return err
		}
	default:
		return errors.New("config schema takes at most an api and a model")
	}

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", out)
	return nil
}
