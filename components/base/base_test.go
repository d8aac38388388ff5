package base_test

import (
	"context"
	"testing"

	"go.viam.com/test"

	"github.com/depthview/depthview/components/base"
	"github.com/depthview/depthview/components/base/fake"
	"github.com/depthview/depthview/logging"
	"github.com/depthview/depthview/resource"
)

func TestFromConfig(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)

	b, err := base.FromConfig(ctx, resource.Config{Name: "base1", Model: fake.Model}, logger)
	test.That(t, err, test.ShouldBeNil)
	_, ok := b.(*fake.Base)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, b.Close(ctx), test.ShouldBeNil)

	_, err = base.FromConfig(ctx, resource.Config{Name: "base2", Model: "hovercraft"}, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"base2"`)

	_, err = base.FromConfig(ctx, resource.Config{
		Name:       "base3",
		Model:      fake.Model,
		Attributes: resource.AttributeMap{"wheels": 4},
	}, logger)
	test.That(t, err, test.ShouldNotBeNil)

	test.That(t, resource.RegisteredModels(base.API), test.ShouldContain, fake.Model)
}
