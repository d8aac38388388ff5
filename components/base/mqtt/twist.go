package mqtt

import (
	"encoding/json"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// Encoding is the wire encoding of a Twist.
type Encoding string

// The supported encodings.
const (
	EncodingJSON    = Encoding("json")
	EncodingMsgpack = Encoding("msgpack")
)

// Vector3 mirrors geometry_msgs/Vector3.
type Vector3 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z" msgpack:"z"`
}

// Twist mirrors geometry_msgs/Twist, the message a cmd_vel topic carries.
type Twist struct {
	Linear  Vector3 `json:"linear" msgpack:"linear"`
	Angular Vector3 `json:"angular" msgpack:"angular"`
}

// NewTwist builds a Twist from velocity vectors.
func NewTwist(linear, angular r3.Vector) Twist {
	return Twist{
		Linear:  Vector3{X: linear.X, Y: linear.Y, Z: linear.Z},
		Angular: Vector3{X: angular.X, Y: angular.Y, Z: angular.Z},
	}
}

// Vectors returns the linear and angular velocities of t.
func (t Twist) Vectors() (r3.Vector, r3.Vector) {
	return r3.Vector{X: t.Linear.X, Y: t.Linear.Y, Z: t.Linear.Z},
		r3.Vector{X: t.Angular.X, Y: t.Angular.Y, Z: t.Angular.Z}
}

// Marshal encodes t.
func (t Twist) Marshal(enc Encoding) ([]byte, error) {
	switch enc {
	case EncodingJSON, "":
		return json.Marshal(t)
	case EncodingMsgpack:
		return msgpack.Marshal(t)
	default:
		return nil, errors.Errorf("unknown encoding %q", enc)
	}
}

// UnmarshalTwist decodes a payload written by Marshal.
func UnmarshalTwist(payload []byte, enc Encoding) (Twist, error) {
	var t Twist
	var err error
	switch enc {
	case EncodingJSON, "":
		err = json.Unmarshal(payload, &t)
	case EncodingMsgpack:
		err = msgpack.Unmarshal(payload, &t)
	default:
		err = errors.Errorf("unknown encoding %q", enc)
	}
	if err != nil {
		return Twist{}, errors.Wrap(err, "cannot decode twist")
	}
	return t, nil
}
