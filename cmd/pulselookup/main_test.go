package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadIndicators(t *testing.T) {
	in := strings.NewReader("evil.com\n\n  8.8.8.8  \n# comment\nexample.org\n")

	out, err := readIndicators(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"evil.com", "8.8.8.8", "example.org"}, out)
}

func TestValidateCommand(t *testing.T) {
	t.Setenv("PULSEDIVE_API_KEY", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "options.yaml")
	require.NoError(t, os.WriteFile(path, []byte("riskLevelDisplay: high\nblocklist: a.com\n"), 0o600))

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"validate", "--options", path})

	err := rootCmd.Execute()
	assert.Error(t, err)
	assert.Contains(t, stdout.String(), "You must provide a PulseDive API key")
}
