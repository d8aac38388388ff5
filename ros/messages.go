package ros

import (
	"encoding/binary"
	"time"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/depthview/depthview/frame"
)

// Image encodings understood by the decoders.
const (
	EncodingMono16 = "mono16"
	Encoding16UC1  = "16UC1"
	EncodingRGB8   = "rgb8"
	EncodingBGR8   = "bgr8"
)

// Stamp is a ROS time.
type Stamp struct {
	Secs  int64
	Nsecs int64
}

// Time converts the stamp.
func (s Stamp) Time() time.Time {
	return time.Unix(s.Secs, s.Nsecs)
}

// Header is the std_msgs/Header of a message.
type Header struct {
	Seq     int64
	Stamp   Stamp
	FrameID string `json:"frame_id"`
}

// ImageMessage is a sensor_msgs/Image.
type ImageMessage struct {
	Header      Header
	Height      int
	Width       int
	Encoding    string
	IsBigendian int `json:"is_bigendian"`
	Step        int
	Data        []byte
}

func (img *ImageMessage) frameHeader(index int64) frame.Header {
	return frame.Header{Width: img.Width, Height: img.Height, Index: index, Valid: true}
}

func (img *ImageMessage) checkSize(bytesPerPixel int) error {
	if img.Width <= 0 || img.Height <= 0 {
		return errors.Errorf("image has no size (%dx%d)", img.Width, img.Height)
	}
	step := img.Step
	if step == 0 {
		step = img.Width * bytesPerPixel
	}
	if step < img.Width*bytesPerPixel || len(img.Data) < step*img.Height {
		return errors.Errorf("image data too short: %d bytes for %dx%d step %d", len(img.Data), img.Width, img.Height, step)
	}
	return nil
}

func (img *ImageMessage) step(bytesPerPixel int) int {
	if img.Step == 0 {
		return img.Width * bytesPerPixel
	}
	return img.Step
}

// DepthFrame decodes a 16 bit depth image in millimetres.
func (img *ImageMessage) DepthFrame(index int64) (*frame.DepthFrame, error) {
	switch img.Encoding {
	case EncodingMono16, Encoding16UC1:
	default:
		return nil, errors.Errorf("unsupported depth encoding %q", img.Encoding)
	}
	if err := img.checkSize(2); err != nil {
		return nil, err
	}
	var order binary.ByteOrder = binary.LittleEndian
	if img.IsBigendian != 0 {
		order = binary.BigEndian
	}
	step := img.step(2)
	data := make([]uint16, img.Width*img.Height)
	for y := 0; y < img.Height; y++ {
		row := img.Data[y*step:]
		for x := 0; x < img.Width; x++ {
			data[y*img.Width+x] = order.Uint16(row[2*x:])
		}
	}
	return &frame.DepthFrame{Header: img.frameHeader(index), Data: data}, nil
}

// ColorFrame decodes an 8 bit RGB or BGR image.
func (img *ImageMessage) ColorFrame(index int64) (*frame.ColorFrame, error) {
	switch img.Encoding {
	case EncodingRGB8, EncodingBGR8:
	default:
		return nil, errors.Errorf("unsupported color encoding %q", img.Encoding)
	}
	if err := img.checkSize(3); err != nil {
		return nil, err
	}
	step := img.step(3)
	data := make([]byte, 0, img.Width*img.Height*3)
	for y := 0; y < img.Height; y++ {
		data = append(data, img.Data[y*step:y*step+img.Width*3]...)
	}
	if img.Encoding == EncodingBGR8 {
		for i := 0; i < len(data); i += 3 {
			data[i], data[i+2] = data[i+2], data[i]
		}
	}
	return &frame.ColorFrame{Header: img.frameHeader(index), Data: data}, nil
}

// Vector3 is a geometry_msgs/Vector3 or Point.
type Vector3 struct {
	X, Y, Z float64
}

// Point2 is a depth image position.
type Point2 struct {
	X, Y float64
}

// JointMessage is one joint of a BodyMessage.
type JointMessage struct {
	Type          string
	Status        string
	DepthPosition Point2  `json:"depth_position"`
	WorldPosition Vector3 `json:"world_position"`
}

// BodyMessage is one tracked person.
type BodyMessage struct {
	ID           int
	CenterOfMass Vector3 `json:"center_of_mass"`
	Joints       []JointMessage
	LeftGrip     bool `json:"left_grip"`
	RightGrip    bool `json:"right_grip"`
}

// PlaneMessage is a plane a*x + b*y + c*z + d = 0.
type PlaneMessage struct {
	A, B, C, D float64
}

// BodiesMessage is the body tracking result of one tick.
type BodiesMessage struct {
	Header        Header
	Width         int
	Height        int
	Bodies        []BodyMessage
	FloorDetected bool         `json:"floor_detected"`
	FloorPlane    PlaneMessage `json:"floor_plane"`
}

var jointStatuses = map[string]frame.JointStatus{
	"not_tracked":    frame.JointNotTracked,
	"low_confidence": frame.JointLowConfidence,
	"tracked":        frame.JointTracked,
}

// BodyFrame converts the message. Joints with an unknown type are an error; an unknown status is
// treated as not tracked.
func (msg *BodiesMessage) BodyFrame(index int64) (*frame.BodyFrame, error) {
	bf := &frame.BodyFrame{
		Header:        frame.Header{Width: msg.Width, Height: msg.Height, Index: index, Valid: true},
		FloorDetected: msg.FloorDetected,
		FloorPlane:    frame.Plane{A: msg.FloorPlane.A, B: msg.FloorPlane.B, C: msg.FloorPlane.C, D: msg.FloorPlane.D},
	}
	for _, b := range msg.Bodies {
		body := frame.Body{
			ID:           b.ID,
			Status:       frame.BodyTracking,
			CenterOfMass: r3.Vector{X: b.CenterOfMass.X, Y: b.CenterOfMass.Y, Z: b.CenterOfMass.Z},
		}
		if b.LeftGrip {
			body.HandPoses.Left = frame.HandPoseGrip
		}
		if b.RightGrip {
			body.HandPoses.Right = frame.HandPoseGrip
		}
		joints, err := convertJoints(b.Joints)
		if err != nil {
			return nil, errors.Wrapf(err, "body %d", b.ID)
		}
		body.Joints = joints
		bf.Bodies = append(bf.Bodies, body)
	}
	return bf, nil
}

func convertJoints(msgs []JointMessage) ([]frame.Joint, error) {
	joints := make([]frame.Joint, 0, len(msgs))
	for _, j := range msgs {
		jt, ok := frame.JointTypeFromString(j.Type)
		if !ok {
			return nil, errors.Errorf("unknown joint type %q", j.Type)
		}
		joints = append(joints, frame.Joint{
			Type:          jt,
			Status:        lo.ValueOr(jointStatuses, j.Status, frame.JointNotTracked),
			DepthPosition: r2.Point{X: j.DepthPosition.X, Y: j.DepthPosition.Y},
			WorldPosition: r3.Vector{X: j.WorldPosition.X, Y: j.WorldPosition.Y, Z: j.WorldPosition.Z},
		})
	}
	return joints, nil
}
