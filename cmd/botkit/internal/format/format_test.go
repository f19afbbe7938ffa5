// Copyright 2025 Vulntor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");

package format

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

type codedErr struct{ error }

func (codedErr) Code() string { return "BOT_NOT_FOUND" }

func TestPrintJSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	f := New(&stdout, &stderr, ModeJSON, false, false)

	require.NoError(t, f.PrintJSON(map[string]string{"bot": "alerts"}))
	require.Equal(t, "{\n  \"bot\": \"alerts\"\n}\n", stdout.String())
	require.True(t, f.IsJSON())
}

func TestPrintTable(t *testing.T) {
	var stdout, stderr bytes.Buffer
	f := New(&stdout, &stderr, ModeTable, false, false)

	err := f.PrintTable([]string{"id", "mode"}, [][]string{
		{"alerts", "default:bot.AsyncJob"},
		{"plain", "off"},
	})
	require.NoError(t, err)

	out := stdout.String()
	require.Contains(t, out, "ID")
	require.Contains(t, out, "MODE")
	require.Contains(t, out, "default:bot.AsyncJob")
	require.Contains(t, out, "plain")
}

func TestPrintTable_JSONMode(t *testing.T) {
	var stdout, stderr bytes.Buffer
	f := New(&stdout, &stderr, ModeJSON, false, false)

	require.NoError(t, f.PrintTable([]string{"id", "mode"}, [][]string{{"alerts", "off"}}))

	var items []map[string]string
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &items))
	require.Equal(t, []map[string]string{{"id": "alerts", "mode": "off"}}, items)
}

func TestPrintTable_JSONModeEmpty(t *testing.T) {
	var stdout, stderr bytes.Buffer
	f := New(&stdout, &stderr, ModeJSON, false, false)

	require.NoError(t, f.PrintTable([]string{"id"}, nil))
	require.Equal(t, "[]\n", stdout.String())
}

func TestPrintSummary(t *testing.T) {
	tests := []struct {
		name       string
		mode       OutputMode
		quiet      bool
		wantStdout string
		wantStderr string
	}{
		{name: "table", mode: ModeTable, wantStdout: "done\n"},
		{name: "json goes to stderr", mode: ModeJSON, wantStderr: "done\n"},
		{name: "quiet", mode: ModeTable, quiet: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			f := New(&stdout, &stderr, tt.mode, tt.quiet, false)

			require.NoError(t, f.PrintSummary("done"))
			require.Equal(t, tt.wantStdout, stdout.String())
			require.Equal(t, tt.wantStderr, stderr.String())
		})
	}
}

func TestPrintError(t *testing.T) {
	t.Run("table with code", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		f := New(&stdout, &stderr, ModeTable, false, false)

		require.NoError(t, f.PrintError(codedErr{errors.New("bot x not found")}))
		require.Equal(t, "Error [BOT_NOT_FOUND]: bot x not found\n", stderr.String())
		require.Empty(t, stdout.String())
	})

	t.Run("json", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		f := New(&stdout, &stderr, ModeJSON, false, false)

		require.NoError(t, f.PrintError(codedErr{errors.New("bot x not found")}))

		var out map[string]any
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
		require.Equal(t, false, out["success"])
		require.Equal(t, "BOT_NOT_FOUND", out["code"])
	})

	t.Run("nil", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		f := New(&stdout, &stderr, ModeTable, false, false)
		require.NoError(t, f.PrintError(nil))
		require.Empty(t, stderr.String())
	})
}

func TestValidateMode(t *testing.T) {
	require.NoError(t, ValidateMode("json"))
	require.NoError(t, ValidateMode("table"))
	require.Error(t, ValidateMode("yaml"))
}

func TestParseMode(t *testing.T) {
	require.Equal(t, ModeJSON, ParseMode("JSON"))
	require.Equal(t, ModeTable, ParseMode("table"))
	require.Equal(t, ModeTable, ParseMode("anything"))
}

func TestFromCommandRespectsFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("output", "table", "")
	cmd.Flags().Bool("quiet", false, "")
	cmd.Flags().Bool("no-color", false, "")

	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	require.NoError(t, cmd.Flags().Set("output", "json"))
	require.NoError(t, cmd.Flags().Set("quiet", "true"))
	require.NoError(t, cmd.Flags().Set("no-color", "true"))

	formatter := FromCommand(cmd)
	require.True(t, formatter.IsJSON())

	require.NoError(t, formatter.PrintSummary("should be suppressed"))
	require.Equal(t, "", out.String())
}
