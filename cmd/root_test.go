package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOr(t *testing.T) {
	t.Setenv(envLogLevel, "debug")
	assert.Equal(t, "debug", envOr(envLogLevel, "warn"))

	t.Setenv(envLogLevel, "")
	assert.Equal(t, "warn", envOr(envLogLevel, "warn"))
}

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "validate", "history"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestRunCommand_Defaults(t *testing.T) {
	flags := runCmd.Flags()
	for flag, want := range map[string]string{
		"seed":         "42",
		"replications": "1",
		"max-events":   "0",
		"trace-level":  "none",
	} {
		f := flags.Lookup(flag)
		if assert.NotNil(t, f, flag) {
			assert.Equal(t, want, f.DefValue, flag)
		}
	}
	assert.Equal(t, "warn", rootCmd.PersistentFlags().Lookup("log").DefValue)
}
