package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "arbor", cmd.Use)
	assert.Contains(t, cmd.Long, "closure tables")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"seed", "schema", "roots", "trees", "descendants", "ancestors", "sql"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "", dbFlag.DefValue)

	labelFlag := cmd.PersistentFlags().Lookup("label")
	require.NotNil(t, labelFlag)
	assert.Equal(t, "name", labelFlag.DefValue)
}

func TestTraversalCommandFlags(t *testing.T) {
	tests := []struct {
		command   string
		wantDepth bool
		wantTree  bool
	}{
		{"roots", false, false},
		{"trees", true, false},
		{"descendants", true, true},
		{"ancestors", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			cmd := NewRootCommand()
			sub, _, err := cmd.Find([]string{tt.command})
			require.NoError(t, err)

			for _, name := range []string{"select", "where", "where-null", "order", "relations", "limit", "offset"} {
				assert.NotNil(t, sub.Flags().Lookup(name), "flag %s", name)
			}
			assert.Equal(t, tt.wantDepth, sub.Flags().Lookup("depth") != nil)
			assert.Equal(t, tt.wantTree, sub.Flags().Lookup("tree") != nil)
			assert.Equal(t, tt.wantTree, sub.Flags().Lookup("count") != nil)
		})
	}
}

func TestDepthFlagDefault(t *testing.T) {
	cmd := NewRootCommand()
	sub, _, err := cmd.Find([]string{"trees"})
	require.NoError(t, err)

	depthFlag := sub.Flags().Lookup("depth")
	require.NotNil(t, depthFlag)
	assert.Equal(t, "-1", depthFlag.DefValue)
}

func TestSeedCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	seedCmd, _, err := cmd.Find([]string{"seed"})
	require.NoError(t, err)

	assert.Equal(t, "", seedCmd.Flags().Lookup("fixture").DefValue)
	assert.Equal(t, "false", seedCmd.Flags().Lookup("generate").DefValue)
	assert.Equal(t, "3", seedCmd.Flags().Lookup("width").DefValue)
	assert.Equal(t, "2", seedCmd.Flags().Lookup("depth").DefValue)
}

func TestSQLCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	sqlCmd, _, err := cmd.Find([]string{"sql"})
	require.NoError(t, err)

	assert.NotNil(t, sqlCmd.Flags().Lookup("ancestors"))
	assert.NotNil(t, sqlCmd.Flags().Lookup("count"))
	assert.Equal(t, "", sqlCmd.Flags().Lookup("dialect").DefValue)
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("yaml"))
	assert.False(t, isValidFormat(""))
}
