package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes the command tree with captured output.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "hyperblend", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)
	assert.Contains(t, cmd.Version, Version)
	assert.True(t, cmd.SilenceUsage)
	assert.True(t, cmd.SilenceErrors)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"version", "serve", "worker", "entity", "enrich", "stats", "graph", "molecules"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestNewRootCommand_GlobalFlags(t *testing.T) {
	pf := NewRootCommand().PersistentFlags()

	for _, name := range []string{"config", "log-level", "output", "no-color", "timeout", "server"} {
		assert.NotNil(t, pf.Lookup(name), "missing flag %q", name)
	}
	assert.Equal(t, "c", pf.Lookup("config").Shorthand)
	assert.Equal(t, "o", pf.Lookup("output").Shorthand)
	assert.Equal(t, "json", pf.Lookup("output").DefValue)
	assert.Equal(t, "30s", pf.Lookup("timeout").DefValue)
}

func TestVersionCommand_JSON(t *testing.T) {
	stdout, _, err := runCLI(t, "version")
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, Version, out["version"])
	assert.Equal(t, GitCommit, out["commit"])
	assert.NotEmpty(t, out["client"])
}

func TestVersionCommand_YAML(t *testing.T) {
	stdout, _, err := runCLI(t, "-o", "yaml", "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "version: "+Version)
}

func TestPersistentPreRun_RejectsUnknownOutputFormat(t *testing.T) {
	_, _, err := runCLI(t, "-o", "xml", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestPersistentPreRun_MissingConfigFile(t *testing.T) {
	_, _, err := runCLI(t, "--config", "/nonexistent/hyperblend.yaml", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config initialization failed")
}

func TestPersistentPreRun_ServerOverride(t *testing.T) {
	var captured *CLIContext
	cmd := NewRootCommand()
	cmd.AddCommand(&cobra.Command{
		Use: "probe",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			captured, err = GetCLIContext(cmd)
			return err
		},
	})
	cmd.SetArgs([]string{"--server", "http://example.test:9000/api", "--log-level", "debug", "probe"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	require.NotNil(t, captured)
	assert.Equal(t, "http://example.test:9000/api", captured.Client.BaseURL())
	assert.Equal(t, "debug", captured.Config.Log.Level)
	assert.Equal(t, FormatJSON, captured.OutputFormat)
}

func TestGetCLIContext_Missing(t *testing.T) {
	cmd := &cobra.Command{}
	_, err := GetCLIContext(cmd)
	assert.Error(t, err)

	cmd.SetContext(context.Background())
	_, err = GetCLIContext(cmd)
	assert.Error(t, err)
}

func TestExecute_UnknownSubcommand(t *testing.T) {
	_, _, err := runCLI(t, "unknownsubcommand")
	assert.Error(t, err)
}
