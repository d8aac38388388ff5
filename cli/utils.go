package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"github.com/depthview/depthview/recorder"
)

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// infof prints a message prefixed with a bold cyan "Info: ".
func infof(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	color.New(color.Bold, color.FgCyan).Fprint(w, "Info: ")
	printf(w, format, a...)
}

// warningf prints a message prefixed with a bold yellow "Warning: ".
func warningf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	color.New(color.Bold, color.FgYellow).Fprint(w, "Warning: ")
	printf(w, format, a...)
}

// successf prints a message in green.
func successf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	color.New(color.FgGreen).Fprintf(w, format+"\n", a...)
}

// samePath returns true if abs(path1) and abs(path2) are the same.
func samePath(path1, path2 string) (bool, error) {
	abs1, err := filepath.Abs(path1)
	if err != nil {
		return false, err
	}
	abs2, err := filepath.Abs(path2)
	if err != nil {
		return false, err
	}
	return abs1 == abs2, nil
}

// saveObservationsToDisk writes observations to a file in the specified format.
func saveObservationsToDisk(filePath, format string, observations []recorder.Observation) (err error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.Wrapf(err, "could not create directory: %s", dir)
	}

	//nolint:gosec
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return errors.Wrap(err, "could not open file for writing")
	}
	defer func() {
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
	}()

	switch format {
	case "json":
		enc := json.NewEncoder(file)
		for _, o := range observations {
			if err := enc.Encode(observationJSON(o)); err != nil {
				return errors.Wrap(err, "could not write observation to file")
			}
		}
	case "text":
		if _, err := io.WriteString(file, observationsTable(observations).Render()+"\n"); err != nil {
			return errors.Wrap(err, "could not write observations to file")
		}
	default:
		return errors.Errorf("invalid format: %s, supported formats are 'text' and 'json'", format)
	}
	return nil
}

func observationJSON(o recorder.Observation) map[string]interface{} {
	return map[string]interface{}{
		"session_id":   o.SessionID,
		"recorded_at":  o.RecordedAt.UTC(),
		"frame_index":  o.FrameIndex,
		"body_id":      o.BodyID,
		"valid":        o.Valid,
		"safety":       o.Safety,
		"distance_m":   o.DistanceM,
		"bearing":      o.Bearing,
		"missed_ticks": o.MissedTicks,
		"fps":          o.FPS,
		"linear_x":     o.LinearX,
		"angular_z":    o.AngularZ,
	}
}
