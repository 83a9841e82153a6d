package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/erpsync/internal/model"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Success(map[string]string{"result": "success"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Error("E001", "request failed", map[string]int{"status": 500})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E001", resp.Error.Code)
	assert.Equal(t, "request failed", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Error("E001", "with code", nil))
	require.NoError(t, formatter.Error("", "without code", "hidden"))

	assert.Equal(t, "Error [E001]: with code\nError: without code\n", buf.String())
}

func TestOutputFormatter_TextErrorVerboseDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	require.NoError(t, formatter.Error("", "boom", "extra"))
	assert.Contains(t, buf.String(), "Details: extra")
}

func TestOutputFormatter_Message(t *testing.T) {
	text := &bytes.Buffer{}
	require.NoError(t, (&OutputFormatter{Format: "text", Writer: text}).Message("Deleted material m1", map[string]string{"deleted": "m1"}))
	assert.Equal(t, "Deleted material m1\n", text.String())

	js := &bytes.Buffer{}
	require.NoError(t, (&OutputFormatter{Format: "json", Writer: js}).Message("Deleted material m1", map[string]string{"deleted": "m1"}))
	assert.JSONEq(t, `{"status":"ok","data":{"deleted":"m1"}}`, js.String())
}

func TestOutputFormatter_Table(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Table([]string{"ID", "NAME"}, [][]string{{"m1", "Steel"}, {"m22", "Copper wire"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ID   NAME\nm1   Steel\nm22  Copper wire\n", buf.String())
}

func TestOutputFormatter_TableEmpty(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Table([]string{"ID"}, nil, nil))
	assert.Equal(t, "No records found.\n", buf.String())
}

func TestOutputFormatter_TableJSONUsesData(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Table([]string{"ID"}, [][]string{{"m1"}}, []string{"m1"}))
	assert.JSONEq(t, `{"status":"ok","data":["m1"]}`, buf.String())
}

func TestOutputFormatter_Failure(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Failure("deleting material m1 failed", &model.Failure{Message: "Material in use", Status: 409})
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "Error: Material in use\n", buf.String())

	var failure *model.Failure
	assert.True(t, errors.As(err, &failure))
}

func TestOutputFormatter_FailureOtherError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Failure("listing failed", errors.New("material does not support receive"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Empty(t, buf.String())
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}

	quiet := &OutputFormatter{Format: "text", Writer: out}
	quiet.VerboseLog("hidden %d", 1)
	assert.Empty(t, out.String())

	loud := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}
	loud.VerboseLog("shown %d", 2)
	assert.Empty(t, out.String())
	assert.Equal(t, "shown 2\n", errOut.String())
}

func TestExitErrors(t *testing.T) {
	base := errors.New("disk full")
	err := WrapExitError(ExitCommandError, "failed to read payload", base)

	assert.Equal(t, "failed to read payload: disk full", err.Error())
	assert.ErrorIs(t, err, base)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ExitFailure, GetExitCode(base))
	assert.Equal(t, "plain", NewExitError(ExitFailure, "plain").Error())
}
