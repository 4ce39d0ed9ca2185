package main

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadfunnel/internal/config"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"serve", "sync", "board", "opportunities", "runs"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "leadfunnel", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.Contains(t, rootCmd.Long, "LEADFUNNEL_")
	for _, name := range []string{"log-level", "log-format"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "missing --%s", name)
	}
}

func TestApplyLogFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want config.LogConfig
	}{
		{name: "no flags keeps config", args: nil, want: config.LogConfig{Level: "info", Format: "json"}},
		{name: "level only", args: []string{"--log-level", "debug"}, want: config.LogConfig{Level: "debug", Format: "json"}},
		{name: "both", args: []string{"--log-level=warn", "--log-format=console"}, want: config.LogConfig{Level: "warn", Format: "console"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
			fs.String("log-level", "", "")
			fs.String("log-format", "", "")
			require.NoError(t, fs.Parse(tt.args))

			got := config.LogConfig{Level: "info", Format: "json"}
			applyLogFlags(fs, &got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestSyncCommand_Flags(t *testing.T) {
	for _, name := range []string{"limit", "concurrency"} {
		flag := syncCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "sync command should have --%s flag", name)
		assert.Equal(t, "0", flag.DefValue)
	}
}

func TestBoardCommand_Flags(t *testing.T) {
	flag := boardCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "text", flag.DefValue)

	flag = boardCmd.Flags().Lookup("status")
	require.NotNil(t, flag)
	assert.Equal(t, "all", flag.DefValue)
}

func TestOpportunitiesCommand_Flags(t *testing.T) {
	flag := opportunitiesCmd.Flags().Lookup("source")
	require.NotNil(t, flag)
	assert.Equal(t, "nectar", flag.DefValue)
	assert.Contains(t, opportunitiesCmd.Aliases, "opps")
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["show"])
}
