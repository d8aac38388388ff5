// Package replay plays back depth camera sessions recorded in ROS bags as a frame source.
package replay

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/depthview/depthview/frame"
	"github.com/depthview/depthview/logging"
	"github.com/depthview/depthview/resource"
	"github.com/depthview/depthview/ros"
)

// Model is the registry name of the bag replay source.
const Model = resource.Model("rosbag")

// Default topics of a recorded session.
const (
	DefaultDepthTopic = "/camera/depth/image_raw"
	DefaultBodyTopic  = "/depthview/bodies"
)

func init() {
	frame.Register(Model, resource.Registration[frame.Source, *Config]{
		Constructor: func(ctx context.Context, conf resource.Config, logger logging.Logger) (frame.Source, error) {
			native, err := resource.NativeConfig[*Config](conf)
			if err != nil {
				return nil, err
			}
			return NewSource(native, clock.New(), logger)
		},
	})
}

// Config configures a bag replay.
type Config struct {
	Path       string `json:"path"`
	DepthTopic string `json:"depth_topic,omitempty"`
	// ColorTopic is optional; no color stream is replayed without it.
	ColorTopic string `json:"color_topic,omitempty"`
	BodyTopic  string `json:"body_topic,omitempty"`
	Loop       bool   `json:"loop,omitempty"`
	// RealTime paces frames by their recorded timestamps.
	RealTime bool `json:"real_time,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.Path == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "path")
	}
	return nil
}

// Topics returns the depth, color and body topics with defaults applied.
func (cfg *Config) Topics() (depth, color, body string) {
	depth, color, body = cfg.DepthTopic, cfg.ColorTopic, cfg.BodyTopic
	if depth == "" {
		depth = DefaultDepthTopic
	}
	if body == "" {
		body = DefaultBodyTopic
	}
	return depth, color, body
}

type recorded struct {
	frame *frame.Frame
	stamp time.Time
}

// Source plays back decoded frames.
type Source struct {
	clk      clock.Clock
	logger   logging.Logger
	loop     bool
	realTime bool

	mu        sync.Mutex
	frames    []recorded
	next      int
	startedAt time.Time
	firstAt   time.Time
	closed    bool
}

// NewSource reads the bag at cfg.Path and decodes every frame up front.
func NewSource(cfg *Config, clk clock.Clock, logger logging.Logger) (*Source, error) {
	rb, err := ros.ReadBag(cfg.Path)
	if err != nil {
		return nil, err
	}
	depthTopic, colorTopic, bodyTopic := cfg.Topics()
	topics := []string{depthTopic, bodyTopic}
	if colorTopic != "" {
		topics = append(topics, colorTopic)
	}
	msgs, err := ros.MessagesForTopics(rb, topics...)
	if err != nil {
		return nil, err
	}
	return NewSourceFromMessages(cfg, msgs, clk, logger)
}

// NewSourceFromMessages assembles frames from parsed topic messages. The i-th depth message is
// bundled with the i-th color and body messages; a session without depth is paced by its body
// messages instead.
func NewSourceFromMessages(
	cfg *Config,
	msgs map[string][]ros.Message,
	clk clock.Clock,
	logger logging.Logger,
) (*Source, error) {
	if clk == nil {
		clk = clock.New()
	}
	depthTopic, colorTopic, bodyTopic := cfg.Topics()
	depth, color, bodies := msgs[depthTopic], msgs[colorTopic], msgs[bodyTopic]

	count := len(depth)
	if count == 0 {
		count = len(bodies)
	}
	if count == 0 {
		return nil, errors.Errorf("no messages on %s or %s", depthTopic, bodyTopic)
	}

	s := &Source{clk: clk, logger: logger, loop: cfg.Loop, realTime: cfg.RealTime}
	for i := 0; i < count; i++ {
		index := int64(i + 1)
		f := frame.New(index, time.Time{})
		var stamp time.Time
		if i < len(depth) {
			var img ros.ImageMessage
			if err := depth[i].Decode(&img); err != nil {
				return nil, errors.Wrapf(err, "%s message %d", depthTopic, i)
			}
			df, err := img.DepthFrame(index)
			if err != nil {
				return nil, errors.Wrapf(err, "%s message %d", depthTopic, i)
			}
			f.Set(df)
			stamp = depth[i].Meta.Time()
		}
		if i < len(color) {
			var img ros.ImageMessage
			if err := color[i].Decode(&img); err != nil {
				return nil, errors.Wrapf(err, "%s message %d", colorTopic, i)
			}
			cf, err := img.ColorFrame(index)
			if err != nil {
				return nil, errors.Wrapf(err, "%s message %d", colorTopic, i)
			}
			f.Set(cf)
		}
		if i < len(bodies) {
			var msg ros.BodiesMessage
			if err := bodies[i].Decode(&msg); err != nil {
				return nil, errors.Wrapf(err, "%s message %d", bodyTopic, i)
			}
			bf, err := msg.BodyFrame(index)
			if err != nil {
				return nil, errors.Wrapf(err, "%s message %d", bodyTopic, i)
			}
			f.Set(bf)
			if stamp.IsZero() {
				stamp = bodies[i].Meta.Time()
			}
		}
		f.Timestamp = stamp
		s.frames = append(s.frames, recorded{frame: f, stamp: stamp})
	}
	logger.Infow("loaded recorded session", "frames", count, "depth", len(depth), "color", len(color), "bodies", len(bodies))
	return s, nil
}

// Len returns the number of recorded frames.
func (s *Source) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// NextFrame returns the next recorded frame. With RealTime set, frame.ErrNotReady is returned until
// the recorded gap to the frame has elapsed.
func (s *Source) NextFrame(ctx context.Context) (*frame.Frame, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, errors.New("replay is closed")
	}
	if s.next >= len(s.frames) {
		if !s.loop {
			return nil, nil, io.EOF
		}
		s.next = 0
		s.startedAt = time.Time{}
	}
	rec := s.frames[s.next]
	if s.realTime {
		now := s.clk.Now()
		if s.startedAt.IsZero() {
			s.startedAt, s.firstAt = now, rec.stamp
		}
		if now.Sub(s.startedAt) < rec.stamp.Sub(s.firstAt) {
			return nil, nil, frame.ErrNotReady
		}
	}
	s.next++
	return rec.frame, func() {}, nil
}

// Close stops the replay.
func (s *Source) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
