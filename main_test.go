package main

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/jsonview/internal/config"
	"github.com/mcncl/jsonview/internal/errors"
	"github.com/mcncl/jsonview/internal/logging"
)

type testContext struct {
	*Context
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestContext(stdin string) testContext {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	ctx := &Context{
		Config: config.NewConfig(),
		Logger: logging.Discard(),
		Stdout: stdout,
		Stderr: stderr,
	}
	if stdin != "" {
		ctx.Stdin = strings.NewReader(stdin)
	}
	return testContext{Context: ctx, stdout: stdout, stderr: stderr}
}

func resetCLI(t *testing.T) {
	t.Helper()
	original := CLI
	t.Cleanup(func() { CLI = original })
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "input_*.json")
	require.NoError(t, err)
	_, err = tmpFile.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, tmpFile.Close())
	return tmpFile.Name()
}

func TestRun_Validate(t *testing.T) {
	resetCLI(t)
	CLI.Validate = true

	ctx := newTestContext(`{"a": [1, 2]}`)
	require.NoError(t, run(ctx.Context))
	assert.Equal(t, "Valid JSON!\n", ctx.stdout.String())
}

func TestRun_ValidateInvalid(t *testing.T) {
	resetCLI(t)
	CLI.Validate = true

	err := run(newTestContext(`{"a": }`).Context)
	require.Error(t, err)
	msg := errors.UserFriendlyError(err)
	assert.True(t, strings.HasPrefix(msg, "Invalid JSON: "), msg)
	assert.Contains(t, msg, "line 1")
}

func TestRun_FormatFromStdin(t *testing.T) {
	resetCLI(t)
	CLI.Format = true

	ctx := newTestContext(`{"b":1,"a":[true,null,"x"]}`)
	require.NoError(t, run(ctx.Context))
	assert.Equal(t, "{\n  \"b\": 1,\n  \"a\": [\n    true,\n    null,\n    \"x\"\n  ]\n}\n", ctx.stdout.String())
}

func TestRun_FormatInvalid(t *testing.T) {
	resetCLI(t)
	CLI.Format = true

	err := run(newTestContext(`[1,`).Context)
	require.Error(t, err)
	msg := errors.UserFriendlyError(err)
	assert.True(t, strings.HasPrefix(msg, "Cannot format invalid JSON: "), msg)
}

func TestRun_FormatToOutputFile(t *testing.T) {
	resetCLI(t)
	CLI.Format = true
	CLI.Input = writeTemp(t, `{"id":1,"email":"test@example.com"}`)
	CLI.Output = filepath.Join(t.TempDir(), "data.json")

	ctx := newTestContext("")
	require.NoError(t, run(ctx.Context))

	data, err := os.ReadFile(CLI.Output)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"id\": 1,\n  \"email\": \"test@example.com\"\n}", string(data))
	assert.Empty(t, ctx.stdout.String())
	assert.Contains(t, ctx.stderr.String(), CLI.Output)
}

func TestRun_FormatHighlighted(t *testing.T) {
	resetCLI(t)
	CLI.Format = true

	ctx := newTestContext(`{"a":1}`)
	ctx.Color = true
	require.NoError(t, run(ctx.Context))
	assert.Contains(t, ctx.stdout.String(), "\x1b[")
}

func TestRun_AllowComments(t *testing.T) {
	resetCLI(t)
	CLI.Format = true

	ctx := newTestContext("{\n  // note\n  \"a\": 1,\n}")
	require.Error(t, run(ctx.Context))

	ctx = newTestContext("{\n  // note\n  \"a\": 1,\n}")
	ctx.Config.Parser.AllowComments = true
	require.NoError(t, run(ctx.Context))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", ctx.stdout.String())
}

func TestRun_EmptyInput(t *testing.T) {
	resetCLI(t)

	for _, mode := range []func(){
		func() { CLI.Validate = true },
		func() { CLI.Format = true },
		func() { CLI.Print = true },
		func() { CLI.Search = "x" },
	} {
		CLI.Validate, CLI.Format, CLI.Print, CLI.Search = false, false, false, ""
		mode()

		err := run(newTestContext(" \n ").Context)
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, errors.ErrEmptyInput))
		assert.True(t, strings.HasPrefix(errors.UserFriendlyError(err), "Input error: "))
	}
}

func TestRun_MissingFile(t *testing.T) {
	resetCLI(t)
	CLI.Validate = true
	CLI.Input = filepath.Join(t.TempDir(), "missing.json")

	err := run(newTestContext("").Context)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrFileNotFound))
}

func TestRun_Print(t *testing.T) {
	resetCLI(t)
	CLI.Print = true

	ctx := newTestContext(`{"a": {"b": "hello"}, "c": [1, 2]}`)
	require.NoError(t, run(ctx.Context))

	want := strings.Join([]string{
		"{2 items}",
		"  a: {1 item}",
		`    b: "hello"`,
		"  c: [2 items]",
		"    [0]: 1",
		"    [1]: 2",
	}, "\n") + "\n"
	assert.Equal(t, want, ctx.stdout.String())
}

func TestRun_PrintTruncatesLargeArrays(t *testing.T) {
	resetCLI(t)
	CLI.Print = true

	parts := make([]string, 150)
	for i := range parts {
		parts[i] = fmt.Sprint(i)
	}
	ctx := newTestContext("[" + strings.Join(parts, ",") + "]")
	require.NoError(t, run(ctx.Context))

	lines := strings.Split(strings.TrimSuffix(ctx.stdout.String(), "\n"), "\n")
	require.Len(t, lines, 102)
	assert.Equal(t, "  Show 50 more items...", lines[101])

	ctx = newTestContext("[" + strings.Join(parts, ",") + "]")
	ctx.Config.RevealLimit = 200
	require.NoError(t, run(ctx.Context))
	assert.NotContains(t, ctx.stdout.String(), "more items")
}

func TestRun_Search(t *testing.T) {
	resetCLI(t)
	CLI.Search = "HELLO"

	ctx := newTestContext(`{"a": {"b": "hello"}, "c": [1, 2]}`)
	require.NoError(t, run(ctx.Context))
	assert.Equal(t, "$.a\ta: {1 item}\n$.a.b\tb: \"hello\"\n", ctx.stdout.String())
	assert.Empty(t, ctx.stderr.String())
}

func TestRun_SearchNoMatches(t *testing.T) {
	resetCLI(t)
	CLI.Search = "zzz"

	ctx := newTestContext(`{"a": 1}`)
	require.NoError(t, run(ctx.Context))
	assert.Empty(t, ctx.stdout.String())
	assert.Equal(t, "No matches found\n", ctx.stderr.String())
}

func TestRun_Stats(t *testing.T) {
	resetCLI(t)
	CLI.Stats = true

	ctx := newTestContext(`{"id": "550e8400-e29b-41d4-a716-446655440000", "tags": ["a", "b"]}`)
	require.NoError(t, run(ctx.Context))

	out := ctx.stdout.String()
	assert.Contains(t, out, "Nodes:         5")
	assert.Contains(t, out, "Largest array: $.tags (2 items)")
	assert.Contains(t, out, "Formats:       uuid=1")
}

func TestRun_WatchNeedsInput(t *testing.T) {
	resetCLI(t)
	CLI.Watch = true

	err := run(newTestContext("").Context)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidFilePath))
}

func TestCLIConfig(t *testing.T) {
	resetCLI(t)
	CLI.Theme = "dark"
	CLI.Addr = ":9090"
	CLI.AllowComments = true
	CLI.RevealLimit = 50
	CLI.Debug = true

	cfg := config.MergeConfigs(config.NewConfig(), cliConfig())
	assert.Equal(t, "dark", cfg.Theme)
	assert.Equal(t, ":9090", cfg.Web.Addr)
	assert.True(t, cfg.Parser.AllowComments)
	assert.Equal(t, 50, cfg.RevealLimit)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 500, cfg.DebounceMS, "unset flags keep the base value")
}

func TestBatchMode(t *testing.T) {
	resetCLI(t)
	assert.False(t, batchMode())
	CLI.Search = "x"
	assert.True(t, batchMode())
}
