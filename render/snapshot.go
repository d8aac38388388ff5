package render

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"github.com/xfmoulet/qoi"
	"go.opencensus.io/trace"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/depthview/depthview/dispatch"
	"github.com/depthview/depthview/frame"
	"github.com/depthview/depthview/logging"
)

// Supported file formats.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
	FormatPPM  = "ppm"
	FormatQOI  = "qoi"
)

// Background selects the view a snapshot is drawn on.
type Background string

// Backgrounds.
const (
	BackgroundDepth     = Background("depth")
	BackgroundSecondary = Background("secondary")
)

// DefaultEveryFrames is how often a snapshot is written when unconfigured.
const DefaultEveryFrames = 30

// Config configures periodic snapshots of the views.
type Config struct {
	// Path is the output file. A path containing a verb such as %06d is formatted with the frame count,
	// otherwise the file is overwritten each time.
	Path        string     `json:"path"`
	Format      string     `json:"format,omitempty"`
	EveryFrames int        `json:"every_frames,omitempty"`
	Width       int        `json:"width,omitempty"`
	Background  Background `json:"background,omitempty"`
	HideBodies  bool       `json:"hide_bodies,omitempty"`
	HideHands   bool       `json:"hide_hands,omitempty"`
	HideStatus  bool       `json:"hide_status,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.Path == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "path")
	}
	if _, err := cfg.format(); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if cfg.EveryFrames < 0 {
		return utils.NewConfigValidationError(path, errors.New("every_frames must be non-negative"))
	}
	if cfg.Width < 0 {
		return utils.NewConfigValidationError(path, errors.New("width must be non-negative"))
	}
	switch cfg.Background {
	case "", BackgroundDepth, BackgroundSecondary:
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unknown background %q", cfg.Background))
	}
	return nil
}

func (cfg *Config) format() (string, error) {
	if cfg.Format != "" {
		return normalizeFormat(cfg.Format)
	}
	return FormatFromPath(cfg.Path)
}

func normalizeFormat(format string) (string, error) {
	switch strings.ToLower(format) {
	case FormatPNG:
		return FormatPNG, nil
	case FormatJPEG, "jpg":
		return FormatJPEG, nil
	case FormatPPM:
		return FormatPPM, nil
	case FormatQOI:
		return FormatQOI, nil
	default:
		return "", errors.Errorf("unsupported image format %q", format)
	}
}

// FormatFromPath returns the format matching the extension of path.
func FormatFromPath(path string) (string, error) {
	return normalizeFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, format string) error {
	format, err := normalizeFormat(format)
	if err != nil {
		return err
	}
	switch format {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	case FormatPPM:
		return ppm.Encode(w, img)
	default:
		return qoi.Encode(w, img)
	}
}

// WriteImageToFile writes img to path in the format matching its extension.
func WriteImageToFile(path string, img image.Image) (err error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	return writeImage(path, img, format)
}

func writeImage(path string, img image.Image, format string) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	w := bufio.NewWriter(f)
	if err := Encode(w, img, format); err != nil {
		return err
	}
	return w.Flush()
}

// Scene is everything drawn into one snapshot. All positions are in depth pixels of DepthSize.
type Scene struct {
	Depth     *image.RGBA
	Secondary *image.RGBA
	Overlay   *image.RGBA
	DepthSize image.Point
	Bodies    []frame.Body
	Hands     []frame.HandPoint
	Traces    [][]image.Point
	Status    string
}

// SceneOf copies the current views and tracking state of l. It must be called from the goroutine
// driving l.
func SceneOf(l *dispatch.Listener) Scene {
	bodies, size := l.Bodies()
	scene := Scene{
		Depth:     l.DepthView().Snapshot(),
		Secondary: l.SecondaryView().Snapshot(),
		Overlay:   l.BodyView().Snapshot(),
		DepthSize: size,
		Bodies:    bodies,
		Hands:     l.HandPoints(),
		Status:    l.StatusText(),
	}
	tracer := l.Tracer()
	for _, id := range tracer.IDs() {
		scene.Traces = append(scene.Traces, tracer.Trace(id))
	}
	return scene
}

// Render draws scene per cfg. It returns nil when the chosen background has never been filled.
func Render(scene Scene, cfg *Config) image.Image {
	background := scene.Depth
	if cfg.Background == BackgroundSecondary {
		background = scene.Secondary
	}
	if background == nil {
		return nil
	}

	size := background.Bounds().Size()
	if cfg.Width > 0 && cfg.Width != size.X {
		size = image.Pt(cfg.Width, size.Y*cfg.Width/size.X)
	}
	dc := gg.NewContext(size.X, size.Y)
	dc.DrawImage(imaging.Resize(background, size.X, size.Y, imaging.NearestNeighbor), 0, 0)

	m := Mapper{Scale: 1}
	if scene.DepthSize.X > 0 {
		m.Scale = float64(size.X) / float64(scene.DepthSize.X)
	}
	if !cfg.HideBodies {
		if scene.Overlay != nil && cfg.Background != BackgroundSecondary {
			dc.DrawImage(imaging.Resize(scene.Overlay, size.X, size.Y, imaging.NearestNeighbor), 0, 0)
		}
		for _, body := range scene.Bodies {
			DrawBody(dc, body, m)
		}
	}
	if !cfg.HideHands {
		for _, trace := range scene.Traces {
			DrawTrace(dc, trace, m)
		}
		for _, p := range scene.Hands {
			DrawHandPoint(dc, p, m)
		}
	}
	if !cfg.HideStatus && scene.Status != "" {
		fontSize := float64(size.X) / 24
		if fontSize < 10 {
			fontSize = 10
		}
		DrawShadowedString(dc, scene.Status, image.Pt(5, 5), color.White, fontSize, 2)
	}
	return dc.Image()
}

// Snapshotter periodically renders the views of a listener to disk.
type Snapshotter struct {
	cfg    Config
	format string
	every  int
	logger logging.Logger

	written int
	ticks   int
}

// NewSnapshotter returns a snapshotter for cfg.
func NewSnapshotter(cfg *Config, logger logging.Logger) (*Snapshotter, error) {
	if err := cfg.Validate("snapshot"); err != nil {
		return nil, err
	}
	format, err := cfg.format()
	if err != nil {
		return nil, err
	}
	every := cfg.EveryFrames
	if every == 0 {
		every = DefaultEveryFrames
	}
	return &Snapshotter{cfg: *cfg, format: format, every: every, logger: logger}, nil
}

// OnTick counts a dispatch tick and writes a snapshot every configured number of delivered frames.
// Write errors are logged and do not stop the pipeline.
func (s *Snapshotter) OnTick(ctx context.Context, l *dispatch.Listener, delivered bool) {
	if !delivered {
		return
	}
	s.ticks++
	if s.ticks%s.every != 0 {
		return
	}
	if _, err := s.Write(ctx, SceneOf(l)); err != nil {
		s.logger.Warnw("cannot write snapshot", "error", err)
	}
}

// Write renders scene and writes it, returning the path written. Nothing is written before the
// background view has content.
func (s *Snapshotter) Write(ctx context.Context, scene Scene) (string, error) {
	_, span := trace.StartSpan(ctx, "render::Snapshotter::Write")
	defer span.End()

	img := Render(scene, &s.cfg)
	if img == nil {
		return "", nil
	}
	path := s.cfg.Path
	if strings.Contains(path, "%") {
		path = fmt.Sprintf(path, s.written)
	}
	if err := writeImage(path, img, s.format); err != nil {
		return "", errors.Wrapf(err, "cannot write snapshot %q", path)
	}
	s.written++
	s.logger.Debugw("wrote snapshot", "path", path)
	return path, nil
}

// Written returns the number of snapshots written.
func (s *Snapshotter) Written() int {
	return s.written
}
