package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"github.com/depthview/depthview/logging"
)

func TestTraceSnapshots(t *testing.T) {
	dir := t.TempDir()
	logger, logs := logging.NewObservedTestLogger(t)
	err := mainWithArgs(context.Background(), []string{
		"handtrace", "--frames=30", "--every=10", "--trace-length=5", "--width=320",
		filepath.Join(dir, "trace-%d.png"),
	}, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, logs.FilterMessage("hand trace").Len(), test.ShouldBeGreaterThanOrEqualTo, 2)

	entries, err := os.ReadDir(dir)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(entries), test.ShouldEqual, 3)
	_, err = os.Stat(filepath.Join(dir, "trace-2.png"))
	test.That(t, err, test.ShouldBeNil)
}

func TestMissingOutput(t *testing.T) {
	err := mainWithArgs(context.Background(), []string{"handtrace", "--frames=1"}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}
