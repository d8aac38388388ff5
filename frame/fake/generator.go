package fake

import (
	"context"
	"io"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.viam.com/utils"

	"github.com/depthview/depthview/frame"
	"github.com/depthview/depthview/logging"
	"github.com/depthview/depthview/resource"
)

// Model is the registry name of the synthetic generator.
const Model = resource.Model("fake")

func init() {
	frame.Register(Model, resource.Registration[frame.Source, *Config]{
		Constructor: func(ctx context.Context, conf resource.Config, logger logging.Logger) (frame.Source, error) {
			native, err := resource.NativeConfig[*Config](conf)
			if err != nil {
				return nil, err
			}
			return NewGenerator(native, clock.New(), logger), nil
		},
	})
}

// Scenarios the generator can play.
const (
	ScenarioApproach = "approach"
	ScenarioFall     = "fall"
	ScenarioStatic   = "static"
)

const (
	defaultWidth  = 160
	defaultHeight = 120
	defaultFPS    = 30
	// horizontal field of view of the synthetic camera.
	fovRadians = 60 * math.Pi / 180
)

// AllStreams lists every stream the generator can produce.
var AllStreams = []string{"depth", "color", "ir16", "ir_rgb", "hand", "body"}

// Config configures the synthetic generator.
type Config struct {
	Width    int      `json:"width,omitempty"`
	Height   int      `json:"height,omitempty"`
	FPS      float64  `json:"fps,omitempty"`
	Frames   int      `json:"frames,omitempty"`
	Streams  []string `json:"streams,omitempty"`
	Scenario string   `json:"scenario,omitempty"`
	// RealTime paces frames at FPS; otherwise every call yields a frame.
	RealTime bool `json:"real_time,omitempty"`
	// NotReadyEvery makes every Nth call return frame.ErrNotReady.
	NotReadyEvery int `json:"not_ready_every,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.Width < 0 || cfg.Height < 0 {
		return utils.NewConfigValidationError(path, errors.New("width and height must be non-negative"))
	}
	if cfg.FPS < 0 {
		return utils.NewConfigValidationError(path, errors.New("fps must be non-negative"))
	}
	if unknown, _ := lo.Difference(cfg.Streams, AllStreams); len(unknown) > 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("unknown streams %v", unknown))
	}
	switch cfg.Scenario {
	case "", ScenarioApproach, ScenarioFall, ScenarioStatic:
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unknown scenario %q", cfg.Scenario))
	}
	return nil
}

// Generator synthesizes frames of a person walking in front of the camera.
type Generator struct {
	cfg     Config
	streams map[string]bool
	clk     clock.Clock
	logger  logging.Logger

	mu     sync.Mutex
	calls  int
	tick   int64
	nextAt time.Time
	closed bool
}

// NewGenerator returns a generator. A nil cfg uses the defaults.
func NewGenerator(cfg *Config, clk clock.Clock, logger logging.Logger) *Generator {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	if c.Width == 0 {
		c.Width = defaultWidth
	}
	if c.Height == 0 {
		c.Height = defaultHeight
	}
	if c.FPS == 0 {
		c.FPS = defaultFPS
	}
	if len(c.Streams) == 0 {
		c.Streams = AllStreams
	}
	if c.Scenario == "" {
		c.Scenario = ScenarioApproach
	}
	return &Generator{
		cfg:     c,
		streams: lo.SliceToMap(c.Streams, func(s string) (string, bool) { return s, true }),
		clk:     clk,
		logger:  logger,
	}
}

func (g *Generator) interval() time.Duration {
	return time.Duration(float64(time.Second) / g.cfg.FPS)
}

// NextFrame synthesizes the next frame.
func (g *Generator) NextFrame(ctx context.Context) (*frame.Frame, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil, nil, errors.New("generator is closed")
	}
	if g.cfg.Frames > 0 && g.tick >= int64(g.cfg.Frames) {
		return nil, nil, io.EOF
	}
	g.calls++
	if g.cfg.NotReadyEvery > 0 && g.calls%g.cfg.NotReadyEvery == 0 {
		return nil, nil, frame.ErrNotReady
	}
	now := g.clk.Now()
	if g.cfg.RealTime {
		if now.Before(g.nextAt) {
			return nil, nil, frame.ErrNotReady
		}
		g.nextAt = now.Add(g.interval())
	}

	f := g.generate(g.tick, now)
	g.tick++
	return f, func() {}, nil
}

// Close stops the generator.
func (g *Generator) Close(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	g.logger.Debugw("fake generator closed", "frames", g.tick)
	return nil
}

func (g *Generator) generate(tick int64, now time.Time) *frame.Frame {
	w, h := g.cfg.Width, g.cfg.Height
	header := frame.Header{Width: w, Height: h, Index: tick, Valid: true}
	body := g.body(tick)

	f := frame.New(tick, now)
	if g.streams["depth"] {
		f.Set(g.depth(header, body))
	}
	if g.streams["color"] {
		data := make([]byte, w*h*3)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := (y*w + x) * 3
				data[i] = uint8(x * 255 / w)
				data[i+1] = uint8(y * 255 / h)
				data[i+2] = uint8(tick % 256)
			}
		}
		f.Set(&frame.ColorFrame{Header: header, Data: data})
	}
	if g.streams["ir16"] {
		data := make([]uint16, w*h)
		for i := range data {
			data[i] = uint16((i + int(tick)*7) % 1024)
		}
		f.Set(&frame.InfraredFrame16{Header: header, Data: data})
	}
	if g.streams["ir_rgb"] {
		data := make([]byte, w*h*3)
		for i := 0; i < w*h; i++ {
			v := uint8((i + int(tick)) % 256)
			data[i*3], data[i*3+1], data[i*3+2] = v, v, v
		}
		f.Set(&frame.InfraredFrameRGB{Header: header, Data: data})
	}
	if g.streams["hand"] {
		f.Set(&frame.HandFrame{Header: header, Points: []frame.HandPoint{g.hand(tick)}})
	}
	if g.streams["body"] {
		f.Set(g.bodyFrame(header, body))
	}
	return f
}

// project maps a world position in millimetres to depth pixel coordinates.
func (g *Generator) project(p r3.Vector) r2.Point {
	focal := float64(g.cfg.Width) / (2 * math.Tan(fovRadians/2))
	z := math.Max(p.Z, 1)
	return r2.Point{
		X: float64(g.cfg.Width)/2 + p.X*focal/z,
		Y: float64(g.cfg.Height)/2 - p.Y*focal/z,
	}
}

// body returns the scripted person for tick.
func (g *Generator) body(tick int64) frame.Body {
	t := float64(tick)
	waist := r3.Vector{X: 0, Y: 0, Z: 2000}
	com := r3.Vector{X: 0, Y: 100, Z: 2000}
	footY := -800.0

	switch g.cfg.Scenario {
	case ScenarioApproach:
		// walks from 4m to 1m over 90 ticks while drifting side to side.
		progress := math.Mod(t, 90) / 90
		waist.Z = 4000 - 3000*progress
		waist.X = 600 * math.Sin(t/15)
		com.Z, com.X = waist.Z, waist.X
	case ScenarioFall:
		waist.Z, com.Z = 2500, 2500
		if tick >= 30 {
			com.Y = footY + 200
			waist.Y = footY + 150
		}
	case ScenarioStatic:
	}

	offsets := [frame.NumJoints]r3.Vector{
		frame.JointHead:          {Y: 650},
		frame.JointShoulderSpine: {Y: 450},
		frame.JointLeftShoulder:  {X: -200, Y: 450},
		frame.JointLeftElbow:     {X: -250, Y: 200},
		frame.JointLeftHand:      {X: -250, Y: 0},
		frame.JointRightShoulder: {X: 200, Y: 450},
		frame.JointRightElbow:    {X: 250, Y: 200},
		frame.JointRightHand:     {X: 250, Y: 0},
		frame.JointMidSpine:      {Y: 200},
		frame.JointBaseSpine:     {},
		frame.JointLeftHip:       {X: -120, Y: -50},
		frame.JointLeftKnee:      {X: -120, Y: -450},
		frame.JointLeftFoot:      {X: -120},
		frame.JointRightHip:      {X: 120, Y: -50},
		frame.JointRightKnee:     {X: 120, Y: -450},
		frame.JointRightFoot:     {X: 120},
		frame.JointLeftWrist:     {X: -250, Y: 50},
		frame.JointRightWrist:    {X: 250, Y: 50},
		frame.JointNeck:          {Y: 550},
	}
	joints := make([]frame.Joint, frame.NumJoints)
	for i := range joints {
		jt := frame.JointType(i)
		pos := waist.Add(offsets[i])
		if jt == frame.JointLeftFoot || jt == frame.JointRightFoot {
			pos.Y = footY
		}
		status := frame.JointTracked
		if jt == frame.JointLeftWrist || jt == frame.JointRightWrist {
			status = frame.JointLowConfidence
		}
		joints[i] = frame.Joint{Type: jt, Status: status, DepthPosition: g.project(pos), WorldPosition: pos}
	}

	poses := frame.HandPoses{}
	if (tick/20)%2 == 1 {
		poses.Right = frame.HandPoseGrip
	}
	return frame.Body{ID: 1, Status: frame.BodyTracking, CenterOfMass: com, Joints: joints, HandPoses: poses}
}

func (g *Generator) depth(header frame.Header, body frame.Body) *frame.DepthFrame {
	w, h := header.Width, header.Height
	data := make([]uint16, w*h)
	center := g.project(body.CenterOfMass)
	radius := float64(w) / 8
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint16(4500 - y*3000/h)
			if math.Hypot(float64(x)-center.X, float64(y)-center.Y) < radius {
				v = uint16(body.CenterOfMass.Z)
			}
			data[y*w+x] = v
		}
	}
	return &frame.DepthFrame{Header: header, Data: data}
}

func (g *Generator) bodyFrame(header frame.Header, body frame.Body) *frame.BodyFrame {
	w, h := header.Width, header.Height
	bodyMask := make([]uint8, w*h)
	floorMask := make([]uint8, w*h)
	center := g.project(body.CenterOfMass)
	radius := float64(w) / 8
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if math.Hypot(float64(x)-center.X, float64(y)-center.Y) < radius {
				bodyMask[i] = uint8(body.ID)
			} else if y >= h*3/4 {
				floorMask[i] = 1
			}
		}
	}
	return &frame.BodyFrame{
		Header:        header,
		Bodies:        []frame.Body{body},
		BodyMask:      bodyMask,
		FloorMask:     floorMask,
		FloorDetected: true,
		FloorPlane:    frame.Plane{A: 0, B: 1, C: 0, D: 800},
	}
}

func (g *Generator) hand(tick int64) frame.HandPoint {
	angle := float64(tick) / 10
	pos := r3.Vector{X: 300 * math.Cos(angle), Y: 300 * math.Sin(angle), Z: 1500}
	return frame.HandPoint{
		TrackingID:    1,
		Status:        frame.HandTracking,
		DepthPosition: g.project(pos),
		WorldPosition: pos,
	}
}
