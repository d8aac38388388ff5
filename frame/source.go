package frame

import (
	"context"

	"github.com/pkg/errors"

	"github.com/depthview/depthview/logging"
	"github.com/depthview/depthview/resource"
)

// API is the registry API frame sources are registered under.
const API = resource.API("frame_source")

// ErrNotReady is returned by NextFrame when no frame is available yet. It is not a failure.
var ErrNotReady = errors.New("frame not ready")

// A Source produces frames. The returned release func must be called exactly once when the caller
// is done with the frame; after that the frame must not be read.
//
// NextFrame returns ErrNotReady when nothing is available this tick and io.EOF when the source is
// exhausted.
type Source interface {
	resource.Resource
	NextFrame(ctx context.Context) (*Frame, func(), error)
}

// Register registers a frame source model.
func Register[ConfigT resource.ConfigValidator](model resource.Model, reg resource.Registration[Source, ConfigT]) {
	resource.Register(API, model, reg)
}

// NewFromConfig builds a registered frame source.
func NewFromConfig(ctx context.Context, conf resource.Config, logger logging.Logger) (Source, error) {
	src, err := resource.New[Source](ctx, API, conf, logger)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open frame source")
	}
	return src, nil
}
