package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/geo/r2"

	"github.com/depthview/depthview/frame"
)

// Bones are the joint pairs connected when drawing a skeleton.
var Bones = [][2]frame.JointType{
	{frame.JointHead, frame.JointNeck},
	{frame.JointNeck, frame.JointShoulderSpine},

	{frame.JointShoulderSpine, frame.JointLeftShoulder},
	{frame.JointLeftShoulder, frame.JointLeftElbow},
	{frame.JointLeftElbow, frame.JointLeftWrist},
	{frame.JointLeftWrist, frame.JointLeftHand},

	{frame.JointShoulderSpine, frame.JointRightShoulder},
	{frame.JointRightShoulder, frame.JointRightElbow},
	{frame.JointRightElbow, frame.JointRightWrist},
	{frame.JointRightWrist, frame.JointRightHand},

	{frame.JointShoulderSpine, frame.JointMidSpine},
	{frame.JointMidSpine, frame.JointBaseSpine},

	{frame.JointBaseSpine, frame.JointLeftHip},
	{frame.JointLeftHip, frame.JointLeftKnee},
	{frame.JointLeftKnee, frame.JointLeftFoot},

	{frame.JointBaseSpine, frame.JointRightHip},
	{frame.JointRightHip, frame.JointRightKnee},
	{frame.JointRightKnee, frame.JointRightFoot},
}

var (
	jointColor     = color.RGBA{0, 0xFF, 0, 0xFF}
	gripJointColor = color.RGBA{0, 0xAA, 0xFF, 0xFF}
	boneColor      = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	weakBoneColor  = color.RGBA{128, 128, 128, 0xFF}

	traceColor          = color.RGBA{0, 0, 0xFF, 0xFF}
	handTrackingColor   = color.RGBA{0, 139, 69, 0xFF}
	handCandidateColor  = color.RGBA{0xFF, 0xFF, 0, 0xFF}
	handLostColor       = color.RGBA{0xFF, 0, 0, 0xFF}
	handPointRadius     = 16.0
	handTraceLineWidth  = 4.0
	handLabelFontSize   = 14.0
	jointScaleReference = 120.0
)

// JointScale is the unit joint radii and bone widths are expressed in for a canvas of the given width.
func JointScale(width int) float64 {
	return float64(width) / jointScaleReference
}

// Mapper maps depth pixel coordinates onto the canvas.
type Mapper struct {
	Scale float64
}

// Point maps a depth position.
func (m Mapper) Point(p r2.Point) gg.Point {
	return gg.Point{X: p.X * m.Scale, Y: p.Y * m.Scale}
}

// DrawBody draws the bones and then the joints of one body. Untracked joints and bones touching them
// are left out.
func DrawBody(dc *gg.Context, body frame.Body, m Mapper) {
	scale := JointScale(dc.Width())
	for _, bone := range Bones {
		drawBone(dc, body, bone, m, scale)
	}
	for _, j := range body.Joints {
		drawJoint(dc, body, j, m, scale)
	}
}

func drawBone(dc *gg.Context, body frame.Body, bone [2]frame.JointType, m Mapper, scale float64) {
	a, ok := body.Joint(bone[0])
	if !ok || a.Status == frame.JointNotTracked {
		return
	}
	b, ok := body.Joint(bone[1])
	if !ok || b.Status == frame.JointNotTracked {
		return
	}

	width := 0.5 * scale
	c := boneColor
	if a.Status == frame.JointLowConfidence || b.Status == frame.JointLowConfidence {
		width /= 2
		c = weakBoneColor
	}
	from, to := m.Point(a.DepthPosition), m.Point(b.DepthPosition)
	DrawLine(dc, from, to, color.Black, width+scale)
	DrawLine(dc, from, to, c, width)
}

func isGripping(body frame.Body, jt frame.JointType) bool {
	switch jt {
	case frame.JointLeftHand:
		return body.HandPoses.Left == frame.HandPoseGrip
	case frame.JointRightHand:
		return body.HandPoses.Right == frame.HandPoseGrip
	default:
		return false
	}
}

func drawJoint(dc *gg.Context, body frame.Body, j frame.Joint, m Mapper, scale float64) {
	if j.Status == frame.JointNotTracked {
		return
	}
	radius := scale
	shadow := color.Color(color.Black)
	c := jointColor
	if isGripping(body, j.Type) {
		radius *= 1.5
		shadow = color.White
		c = gripJointColor
	}
	center := m.Point(j.DepthPosition)
	DrawDisc(dc, center, radius+0.5*scale, shadow)
	DrawDisc(dc, center, radius, c)
}

// DrawTrace draws the path of one hand. Traces with fewer than two positions are not drawn.
func DrawTrace(dc *gg.Context, trace []image.Point, m Mapper) {
	if len(trace) < 2 {
		return
	}
	center := func(p image.Point) gg.Point {
		return m.Point(r2.Point{X: float64(p.X) + 0.5, Y: float64(p.Y) + 0.5})
	}
	dc.SetColor(traceColor)
	dc.SetLineWidth(handTraceLineWidth)
	prev := center(trace[0])
	for _, p := range trace[1:] {
		next := center(p)
		dc.DrawLine(prev.X, prev.Y, next.X, next.Y)
		prev = next
	}
	dc.Stroke()
}

// HandColor returns the marker color for a hand point status.
func HandColor(status frame.HandPointStatus) color.RGBA {
	switch status {
	case frame.HandLost:
		return handLostColor
	case frame.HandCandidate:
		return handCandidateColor
	default:
		return handTrackingColor
	}
}

// HandLabel returns the text drawn next to a hand point.
func HandLabel(p frame.HandPoint) string {
	switch p.Status {
	case frame.HandLost:
		return fmt.Sprintf("%d Lost", p.TrackingID)
	case frame.HandTracking:
		return fmt.Sprintf("%d\n%.0f, %.0f, %.0f", p.TrackingID, p.WorldPosition.X, p.WorldPosition.Y, p.WorldPosition.Z)
	default:
		return fmt.Sprint(p.TrackingID)
	}
}

// DrawHandPoint draws the marker and label of one hand point.
func DrawHandPoint(dc *gg.Context, p frame.HandPoint, m Mapper) {
	if p.Status == frame.HandNotTracking {
		return
	}
	center := m.Point(r2.Point{X: p.DepthPosition.X + 0.5, Y: p.DepthPosition.Y + 0.5})
	DrawDisc(dc, center, handPointRadius, HandColor(p.Status))
	DrawString(dc, HandLabel(p), image.Pt(int(center.X+handPointRadius), int(center.Y)), color.White, handLabelFontSize)
}
