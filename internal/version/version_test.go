package version

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// TestVersionStrings ensures Short and Full return non-empty consistent information.
func TestVersionStrings(t *testing.T) {
	t.Parallel()

	require.NotEmpty(t, Short())
	require.Contains(t, Full(), Short())
	require.Contains(t, Full(), AppName)
	require.True(t, strings.HasSuffix(UserAgent(), "/"+Short()))
}

// TestVersionCommand runs the attached subcommand with and without --short.
func TestVersionCommand(t *testing.T) {
	t.Parallel()

	run := func(args ...string) string {
		root := &cobra.Command{Use: "wakemeup"}
		AttachCobraVersionCommand(root)

		var out bytes.Buffer

		root.SetOut(&out)
		root.SetArgs(args)
		require.NoError(t, root.Execute())

		return out.String()
	}

	require.Equal(t, Full()+"\n", run("version"))
	require.Equal(t, Short()+"\n", run("version", "--short"))
}
