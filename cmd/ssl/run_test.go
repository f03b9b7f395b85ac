package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ssl-backtest/internal/frame"
	"ssl-backtest/internal/model"
)

func writeTrendCSV(t *testing.T) string {
	t.Helper()
	closes := []float64{10, 11, 12, 13, 14, 15, 14, 12, 10, 8, 6, 5}
	var b strings.Builder
	b.WriteString("date,open,high,low,close\n")
	for i, c := range closes {
		fmt.Fprintf(&b, "2024-01-%02d,%g,%g,%g,%g\n", i+1, c, c+0.5, c-0.5, c)
	}
	path := filepath.Join(t.TempDir(), "TREND.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestRunCommand_CSV(t *testing.T) {
	for _, key := range []string{"SSL_LENGTH", "SSL_CAPITAL", "SSL_RISK_PERCENT"} {
		t.Setenv(key, "")
	}
	in := writeTrendCSV(t)
	out := filepath.Join(t.TempDir(), "annotated.csv")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"run", "--csv", in, "--length", "3", "--out", out, "--rows", "0"})
	require.NoError(t, rootCmd.Execute())

	printed := stdout.String()
	assert.Contains(t, printed, "TREND")
	assert.Contains(t, printed, "buy")
	assert.Contains(t, printed, "sell")
	assert.Contains(t, printed, "short")

	file, err := os.Open(out)
	require.NoError(t, err)
	defer file.Close()
	f, err := frame.ReadCSV(file)
	require.NoError(t, err)

	assert.Equal(t, 12, f.Len())
	signals, ok := f.Column(model.FieldSignal)
	require.True(t, ok)
	sizes, ok := f.Column(model.FieldPositionSize)
	require.True(t, ok)
	assert.Equal(t, float64(model.Buy), signals[2])
	assert.Equal(t, float64(model.Sell), signals[7])
	assert.Equal(t, 10.0, sizes[2])
	assert.Equal(t, 0.0, sizes[3])
}

func TestRunCommand_ConfigFileLoadedOnce(t *testing.T) {
	for _, key := range []string{"SSL_LENGTH", "SSL_CAPITAL", "SSL_RISK_PERCENT"} {
		t.Setenv(key, "")
	}
	in := writeTrendCSV(t)
	out := filepath.Join(t.TempDir(), "annotated.csv")
	cfgPath := filepath.Join(t.TempDir(), "ssl.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("length: 3\ncapital: 2000\n"), 0o644))
	t.Cleanup(func() { rootCmd.PersistentFlags().Set("config", "") })

	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"run", "--csv", in, "--config", cfgPath, "--out", out})
	require.NoError(t, rootCmd.Execute())

	require.NotNil(t, appConfig)
	assert.Equal(t, 2000.0, appConfig.Capital)

	file, err := os.Open(out)
	require.NoError(t, err)
	defer file.Close()
	f, err := frame.ReadCSV(file)
	require.NoError(t, err)
	sizes, ok := f.Column(model.FieldPositionSize)
	require.True(t, ok)
	assert.Equal(t, 20.0, sizes[2])
}
