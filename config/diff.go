package config

import (
	"encoding/json"
	"reflect"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/depthview/depthview/resource"
)

// Config sections, as named in the file.
const (
	SectionSource   = "source"
	SectionStreams  = "streams"
	SectionFollow   = "follow"
	SectionBase     = "base"
	SectionSnapshot = "snapshot"
	SectionRecorder = "recorder"
)

// A Diff is the difference between two configs, left and right
// where left is usually old and right is new. So the diff is the
// changes from left to right.
type Diff struct {
	Left, Right *Config

	SourceEqual   bool
	StreamsEqual  bool
	FollowEqual   bool
	BaseEqual     bool
	SnapshotEqual bool
	RecorderEqual bool

	PrettyDiff string
}

// DiffConfigs returns the difference between the two given configs
// from left to right. Secrets are masked in the pretty diff unless revealSensitiveConfigDiffs is set.
func DiffConfigs(left, right Config, revealSensitiveConfigDiffs bool) (_ *Diff, err error) {
	diff := Diff{
		Left:          &left,
		Right:         &right,
		SourceEqual:   sameResource(&left.Source, &right.Source),
		StreamsEqual:  reflect.DeepEqual(left.Dispatch(), right.Dispatch()),
		FollowEqual:   reflect.DeepEqual(left.Follow, right.Follow),
		BaseEqual:     sameResource(left.Base, right.Base),
		SnapshotEqual: reflect.DeepEqual(left.Snapshot, right.Snapshot),
		RecorderEqual: reflect.DeepEqual(left.Recorder, right.Recorder),
	}
	diff.PrettyDiff, err = prettyDiff(left, right, revealSensitiveConfigDiffs)
	if err != nil {
		return nil, err
	}
	return &diff, nil
}

func sameResource(left, right *resource.Config) bool {
	if left == nil || right == nil {
		return left == right
	}
	return left.Name == right.Name && left.Model == right.Model && reflect.DeepEqual(left.Attributes, right.Attributes)
}

// Changed lists the sections that differ.
func (diff *Diff) Changed() []string {
	var changed []string
	for _, s := range []struct {
		name  string
		equal bool
	}{
		{SectionSource, diff.SourceEqual},
		{SectionStreams, diff.StreamsEqual},
		{SectionFollow, diff.FollowEqual},
		{SectionBase, diff.BaseEqual},
		{SectionSnapshot, diff.SnapshotEqual},
		{SectionRecorder, diff.RecorderEqual},
	} {
		if !s.equal {
			changed = append(changed, s.name)
		}
	}
	return changed
}

// NeedsRestart reports whether a section other than streams changed. Stream changes are applied to a
// running listener with Reconfigure.
func (diff *Diff) NeedsRestart() bool {
	return !(diff.SourceEqual && diff.FollowEqual && diff.BaseEqual && diff.SnapshotEqual && diff.RecorderEqual)
}

var sensitiveAttributes = []string{"password", "username"}

func prettyDiff(left, right Config, reveal bool) (string, error) {
	mask := "******"
	sanitizeConfig := func(conf *Config) {
		if conf.Base == nil {
			return
		}
		attrs := resource.AttributeMap{}
		for k, v := range conf.Base.Attributes {
			attrs[k] = v
		}
		for _, key := range sensitiveAttributes {
			if attrs.Has(key) {
				attrs[key] = mask
			}
		}
		masked := *conf.Base
		masked.Attributes = attrs
		conf.Base = &masked
	}
	if !reveal {
		sanitizeConfig(&left)
		sanitizeConfig(&right)
	}

	leftMd, err := json.MarshalIndent(left, "", " ")
	if err != nil {
		return "", err
	}
	rightMd, err := json.MarshalIndent(right, "", " ")
	if err != nil {
		return "", err
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(string(leftMd), string(rightMd), true))
	filteredDiffs := make([]diffmatchpatch.Diff, 0, len(diffs))
	for _, d := range diffs {
		if d.Type == diffmatchpatch.DiffEqual {
			continue
		}
		filteredDiffs = append(filteredDiffs, d)
	}
	return dmp.DiffPrettyText(filteredDiffs), nil
}

// String returns a pretty version of the diff.
func (diff *Diff) String() string {
	return diff.PrettyDiff
}
