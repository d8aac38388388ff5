package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.viam.com/utils"

	"github.com/depthview/depthview/recorder"
)

// RecordingsListAction lists the sessions stored in a recorder database.
func RecordingsListAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("recordings list takes exactly one database")
	}
	path := c.Args().First()
	if _, err := os.Stat(path); err != nil {
		return err
	}
	db, err := recorder.OpenReadOnly(path)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(db.Close)

	sessions, err := recorder.Sessions(c.Context, db)
	if err != nil {
		return errors.Wrapf(err, "cannot list sessions in %s", path)
	}
	if len(sessions) == 0 {
		warningf(c.App.ErrWriter, "no sessions recorded in %s", path)
		return nil
	}
	printf(c.App.Writer, "%s", sessionsTable(sessions).Render())
	return nil
}

func sessionsTable(sessions []recorder.Session) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Session", "Name", "Started"})
	for _, s := range sessions {
		t.AppendRow(table.Row{s.ID, s.Name, s.StartedAt.UTC().Format(time.RFC3339)})
	}
	return t
}

// RecordingsShowAction prints, or saves, the observations of one session.
func RecordingsShowAction(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return errors.New("recordings show takes a database and a session")
	}
	path, session := c.Args().Get(0), c.Args().Get(1)
	if _, err := os.Stat(path); err != nil {
		return err
	}
	db, err := recorder.OpenReadOnly(path)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(db.Close)

	observations, err := recorder.Observations(c.Context, db, session, c.Int(recordingsFlagLimit))
	if err != nil {
		return errors.Wrapf(err, "cannot read observations of %s", session)
	}
	if len(observations) == 0 {
		return errors.Errorf("no observations for session %q", session)
	}

	if output := c.String(recordingsFlagOutput); output != "" {
		if err := saveObservationsToDisk(output, c.String(recordingsFlagFormat), observations); err != nil {
			return err
		}
		successf(c.App.Writer, "wrote %d observations to %s", len(observations), output)
		return nil
	}
	printf(c.App.Writer, "%s", observationsTable(observations).Render())
	return nil
}

func observationsTable(observations []recorder.Observation) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Recorded", "Frame", "Body", "Safety", "Distance (m)", "Bearing", "FPS", "Linear X", "Angular Z"})
	for _, o := range observations {
		body := "-"
		if o.Valid {
			body = fmt.Sprintf("%d", o.BodyID)
		}
		t.AppendRow(table.Row{
			o.RecordedAt.UTC().Format(time.RFC3339Nano),
			o.FrameIndex,
			body,
			o.Safety,
			fmt.Sprintf("%.3f", o.DistanceM),
			fmt.Sprintf("%.3f", o.Bearing),
			fmt.Sprintf("%.1f", o.FPS),
			fmt.Sprintf("%.1f", o.LinearX),
			fmt.Sprintf("%.1f", o.AngularZ),
		})
	}
	return t
}
