// Copyright (C) 2026 AlmaLink Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestCaptureRecordsEntries(t *testing.T) {
	logger, capture := NewCapture()

	logger.Info("session opened", "session_id", "abc")
	logger.Warn("corrupt value discarded", "key", "referralRequests_1")

	entries := capture.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "session opened", entries[0].Message)
	assert.Equal(t, "abc", entries[0].Attrs["session_id"])
	assert.Equal(t, slog.LevelWarn, entries[1].Level)
	assert.True(t, capture.Contains("corrupt value discarded"))
	assert.False(t, capture.Contains("never logged"))
}

func TestWithCarriesAttributes(t *testing.T) {
	logger, capture := NewCapture()

	child := logger.With("component", "store")
	child.Info("write committed", "key", "comments_9")

	entries := capture.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "store", entries[0].Attrs["component"])
	assert.Equal(t, "comments_9", entries[0].Attrs["key"])
}

func TestFileLogging(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{
		Level:   LevelInfo,
		LogDir:  dir,
		Service: "localdata",
		Quiet:   true,
	})

	logger.Info("persisted", "key", "unifiedDiscussions")
	require.NoError(t, logger.Close())

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, strings.HasPrefix(files[0].Name(), "localdata_"))

	data, err := os.ReadFile(filepath.Join(dir, files[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"persisted"`)
	assert.Contains(t, string(data), `"service":"localdata"`)
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{
		Level:   LevelWarn,
		LogDir:  dir,
		Service: "filter",
		Quiet:   true,
	})

	logger.Debug("dropped")
	logger.Info("dropped too")
	logger.Error("kept")
	require.NoError(t, logger.Close())

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(filepath.Join(dir, files[0].Name()))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}
