// Package register registers all built in frame sources and bases.
package register

import (
	// register bases.
	_ "github.com/depthview/depthview/components/base/fake"
	_ "github.com/depthview/depthview/components/base/mqtt"
	// register frame sources.
	_ "github.com/depthview/depthview/frame/fake"
	_ "github.com/depthview/depthview/frame/replay"
)
