package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRootCmdRegistersSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"rank", "similar", "important", "fading", "orphans",
		"dangling", "backlinks", "cross-project", "stale", "build", "metrics", "communities", "report", "watch"} {
		require.True(t, names[want], "expected subcommand %q to be registered", want)
	}
}

func TestBuildAndRankAgainstTempVault(t *testing.T) {
	logger = zap.NewNop()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".ori"), nil, 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "notes"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes", "deploy-runbook.md"), []byte(
		"---\ntype: learning\ndescription: how to deploy\ncreated: 2026-01-01\n---\nSteps to deploy the service."), 0644))

	vaultRoot = root
	limit = 5
	defer func() { vaultRoot = ""; limit = 10 }()

	var out bytes.Buffer
	rootCmd.SetOut(&out)

	require.NoError(t, buildCmd.RunE(buildCmd, nil))
	require.NoError(t, rankCmd.RunE(rankCmd, []string{"how do I deploy"}))
}
