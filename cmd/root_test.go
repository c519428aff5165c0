package main

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command from an empty temp dir so no config.yaml is
// picked up. Flags are reset first because cobra keeps them in package vars.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	resetFlags(rootCmd)
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	// Verify expected subcommands are registered.
	expected := []string{"evaluate", "sweep", "batch", "regimes", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "rd-benefit", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestEvaluateCommand_Flags(t *testing.T) {
	defaults := map[string]string{
		"sales":    "20000000",
		"opex":     "7000000",
		"rd":       "3000000",
		"regime":   "",
		"tax-rate": "",
		"format":   "text",
		"output":   "",
	}
	for name, def := range defaults {
		flag := evaluateCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "evaluate should have --%s flag", name)
		assert.Equal(t, def, flag.DefValue, "--%s default", name)
	}
}

func TestSweepCommand_Flags(t *testing.T) {
	for _, name := range []string{"sales", "opex", "regime", "tax-rate", "from", "to", "steps", "format"} {
		assert.NotNil(t, sweepCmd.Flags().Lookup(name), "sweep should have --%s flag", name)
	}
	assert.Nil(t, sweepCmd.Flags().Lookup("rd"), "sweep varies R&D itself")
	assert.Equal(t, "10", sweepCmd.Flags().Lookup("steps").DefValue)
}

func TestBatchCommand_Flags(t *testing.T) {
	flag := batchCmd.Flags().Lookup("csv")
	require.NotNil(t, flag, "batch command should have --csv flag")

	conc := batchCmd.Flags().Lookup("concurrency")
	require.NotNil(t, conc)
	assert.Equal(t, "0", conc.DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}
