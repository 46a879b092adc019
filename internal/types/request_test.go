package types

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ashiqtasdid/pegasus-sub000/internal/tester"
)

func TestNormalizeTrimsAndChecks(t *testing.T) {
	r, err := GenerationRequest{UserID: " u1 ", PluginName: "Greeter ", TargetVersion: " 1.20.4 "}.Normalize()
	require.NoError(t, err)
	tester.Eq(t, r.ProjectKey(), "u1/Greeter")
	tester.Eq(t, r.TargetVersion, "1.20.4")

	for _, bad := range []GenerationRequest{
		{PluginName: "p"},
		{UserID: "u"},
		{UserID: "a/b", PluginName: "p"},
		{UserID: "u", PluginName: ".."},
		{UserID: "u", PluginName: "p", TargetVersion: "latest"},
		{UserID: "u", PluginName: "p", TargetVersion: "1.21</version>"},
		{UserID: "u", PluginName: "p", MaxIterations: -1},
	} {
		_, err := bad.Normalize()
		require.Error(t, err, bad)
	}
}

func TestIsTargetVersion(t *testing.T) {
	tester.True(t, IsTargetVersion("1.20"))
	tester.True(t, IsTargetVersion("1.20.4"))
	tester.False(t, IsTargetVersion("1"))
	tester.False(t, IsTargetVersion("1.20.4.1"))
	tester.False(t, IsTargetVersion("v1.20"))
}
