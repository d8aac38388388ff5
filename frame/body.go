package frame

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// JointType enumerates the skeleton slots, in the order the tracker reports them.
type JointType int

// The skeleton topology.
const (
	JointHead JointType = iota
	JointShoulderSpine
	JointLeftShoulder
	JointLeftElbow
	JointLeftHand
	JointRightShoulder
	JointRightElbow
	JointRightHand
	JointMidSpine
	JointBaseSpine
	JointLeftHip
	JointLeftKnee
	JointLeftFoot
	JointRightHip
	JointRightKnee
	JointRightFoot
	JointLeftWrist
	JointRightWrist
	JointNeck

	// NumJoints is the size of a complete skeleton.
	NumJoints = int(JointNeck) + 1
)

var jointNames = [NumJoints]string{
	"head", "shoulder_spine", "left_shoulder", "left_elbow", "left_hand",
	"right_shoulder", "right_elbow", "right_hand", "mid_spine", "base_spine",
	"left_hip", "left_knee", "left_foot", "right_hip", "right_knee", "right_foot",
	"left_wrist", "right_wrist", "neck",
}

func (jt JointType) String() string {
	if jt < 0 || int(jt) >= NumJoints {
		return "unknown"
	}
	return jointNames[jt]
}

// JointTypeFromString parses the snake_case joint name used in configuration.
func JointTypeFromString(name string) (JointType, bool) {
	for i, n := range jointNames {
		if n == name {
			return JointType(i), true
		}
	}
	return 0, false
}

// JointStatus is the tracking confidence of a joint.
type JointStatus int

// Joint tracking states.
const (
	JointNotTracked JointStatus = iota
	JointLowConfidence
	JointTracked
)

func (s JointStatus) String() string {
	switch s {
	case JointNotTracked:
		return "not_tracked"
	case JointLowConfidence:
		return "low_confidence"
	case JointTracked:
		return "tracked"
	default:
		return "unknown"
	}
}

// Joint is one skeletal landmark.
type Joint struct {
	Type   JointType
	Status JointStatus
	// DepthPosition is in depth image pixel coordinates.
	DepthPosition r2.Point
	// WorldPosition is in millimetres, camera centred.
	WorldPosition r3.Vector
}

// BodyStatus is the tracking state of a body.
type BodyStatus int

// Body tracking states.
const (
	BodyNotTracking BodyStatus = iota
	BodyLost
	BodyTrackingStarted
	BodyTracking
)

// HandPose is the pose classification of one hand.
type HandPose int

// Hand poses.
const (
	HandPoseUnknown HandPose = iota
	HandPoseGrip
)

// HandPoses holds the pose of each hand of a body.
type HandPoses struct {
	Left  HandPose
	Right HandPose
}

// Body is one tracked person. It is rebuilt every tick; only ID is stable across ticks.
type Body struct {
	ID     int
	Status BodyStatus
	// CenterOfMass is in millimetres.
	CenterOfMass r3.Vector
	Joints       []Joint
	HandPoses    HandPoses
}

// Joint returns the joint of type jt. The tracker reports joints in topology order so the slot is
// tried first, falling back to a scan for reordered or partial skeletons. It never reads outside
// Joints.
func (b *Body) Joint(jt JointType) (Joint, bool) {
	if jt < 0 || int(jt) >= NumJoints {
		return Joint{}, false
	}
	if idx := int(jt); idx < len(b.Joints) && b.Joints[idx].Type == jt {
		return b.Joints[idx], true
	}
	for _, j := range b.Joints {
		if j.Type == jt {
			return j, true
		}
	}
	return Joint{}, false
}

// HandPointStatus is the tracking state of a hand point.
type HandPointStatus int

// Hand point tracking states.
const (
	HandNotTracking HandPointStatus = iota
	HandCandidate
	HandTracking
	HandLost
)

func (s HandPointStatus) String() string {
	switch s {
	case HandNotTracking:
		return "not_tracking"
	case HandCandidate:
		return "candidate"
	case HandTracking:
		return "tracking"
	case HandLost:
		return "lost"
	default:
		return "unknown"
	}
}

// HandPoint is one tracked hand.
type HandPoint struct {
	TrackingID    int
	Status        HandPointStatus
	DepthPosition r2.Point
	// WorldPosition is in millimetres.
	WorldPosition r3.Vector
}
