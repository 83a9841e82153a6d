package cli

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/erpsync/internal/model"
	"github.com/roach88/erpsync/internal/testutil"
)

func materialsPage() testutil.Reply {
	return testutil.Reply{
		Method: http.MethodGet,
		Path:   "/materials/materials-detail",
		Body: map[string]any{
			"materials": []any{
				map[string]any{"_id": "m1", "name": "Steel", "stock": 5, "unit": "kg", "threshold": 1},
				map[string]any{"_id": "m2", "name": "Copper", "stock": 0, "unit": "m", "threshold": 10, "isLowStock": true},
			},
			"currentPage":    1,
			"totalPages":     1,
			"totalMaterials": 2,
		},
	}
}

func writePayload(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payload.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestListCommand_Text(t *testing.T) {
	backend := testutil.NewScriptedTransport(materialsPage())

	out, _, err := runCLI(t, backend, "materials", "list")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "Steel")
	assert.Contains(t, lines[1], "5 kg")
	assert.Contains(t, lines[2], "Low Stock")
	assert.Equal(t, "Page 1 of 1 (2 total)", lines[3])

	reqs := backend.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "1", reqs[0].Query.Get("page"))
	assert.Equal(t, "10", reqs[0].Query.Get("limit"), "limit comes from config")
}

func TestListCommand_SearchJSON(t *testing.T) {
	backend := testutil.NewScriptedTransport(materialsPage())

	out, _, err := runCLI(t, backend, "--format", "json", "materials", "list", "--search", "COPPER", "--limit", "5")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Items      []map[string]any `json:"items"`
			Pagination map[string]int   `json:"pagination"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Items, 1)
	assert.Equal(t, "m2", resp.Data.Items[0]["_id"])
	assert.Equal(t, 2, resp.Data.Pagination["totalItems"])
	assert.Equal(t, "5", backend.Requests()[0].Query.Get("limit"))
}

func TestListCommand_AllUsesCollectionPath(t *testing.T) {
	backend := testutil.NewScriptedTransport(testutil.Reply{
		Method: http.MethodGet,
		Path:   "/vendors",
		Body:   []any{map[string]any{"_id": "v1", "name": "Acme", "contact": "Jo", "email": "jo@acme.test"}},
	})

	out, _, err := runCLI(t, backend, "vendors", "list", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "Acme")
	assert.NotContains(t, out, "Page ")
}

func TestListCommand_EmptyPage(t *testing.T) {
	backend := testutil.NewScriptedTransport(testutil.Reply{
		Method: http.MethodGet,
		Path:   "/sales/sales-detail",
		Body:   map[string]any{"sales": []any{}, "currentPage": 1, "totalPages": 0},
	})

	out, _, err := runCLI(t, backend, "sales", "list")
	require.NoError(t, err)
	assert.Equal(t, "No records found.\nPage 1 of 1 (0 total)\n", out)
}

func TestListCommand_ServerFailure(t *testing.T) {
	backend := testutil.NewScriptedTransport(testutil.Reply{
		Method:  http.MethodGet,
		Path:    "/productions/production-detail",
		Status:  http.StatusInternalServerError,
		Message: "database offline",
	})

	out, errOut, err := runCLI(t, backend, "productions", "list")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "Error: database offline\n", out)
	assert.Contains(t, errOut, "✗ database offline")
}

func TestGetCommand_JSON(t *testing.T) {
	backend := testutil.NewScriptedTransport(testutil.Reply{
		Method: http.MethodGet,
		Path:   "/materials/m1",
		Body:   map[string]any{"material": map[string]any{"_id": "m1", "name": "Steel"}},
	})

	out, _, err := runCLI(t, backend, "--format", "json", "materials", "get", "m1")
	require.NoError(t, err)

	var resp struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "m1", resp.Data["_id"])
	assert.Equal(t, "Steel", resp.Data["name"])
}

func TestCreateCommand_FromYAML(t *testing.T) {
	backend := testutil.NewScriptedTransport(testutil.Reply{
		Method: http.MethodPost,
		Path:   "/materials/add-material",
		Body: map[string]any{"material": map[string]any{
			"_id": "m9", "name": "Steel", "stock": 5, "unit": "kg", "threshold": 1,
		}},
	})
	path := writePayload(t, "name: Steel\nstock: 5\nunit: kg\nthreshold: 1\n")

	out, _, err := runCLI(t, backend, "materials", "create", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "_id: m9")
	assert.Contains(t, out, "name: Steel")

	reqs := backend.Requests()
	require.Len(t, reqs, 1)
	body, ok := reqs[0].Body.(model.Payload)
	require.True(t, ok, "payload is sent as decoded fields, got %T", reqs[0].Body)
	assert.Equal(t, "kg", body["unit"])
}

func TestCreateCommand_InvalidPayloadNeverSent(t *testing.T) {
	backend := testutil.NewScriptedTransport()
	path := writePayload(t, "name: Steel\n")

	out, _, err := runCLI(t, backend, "materials", "create", "-f", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "INVALID_INPUT")
	assert.Empty(t, backend.Requests())
}

func TestCreateCommand_PayloadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"empty", "", "payload is empty"},
		{"not a mapping", "- a\n- b\n", "failed to parse payload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, testutil.NewScriptedTransport(), "vendors", "create", "--file", writePayload(t, tt.content))
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, _, err := runCLI(t, testutil.NewScriptedTransport(), "vendors", "create", "--file", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read payload")
}

func TestUpdateCommand_FromStdinJSON(t *testing.T) {
	backend := testutil.NewScriptedTransport(testutil.Reply{
		Method: http.MethodPut,
		Path:   "/products/p1",
		Body:   map[string]any{"updatedProduct": map[string]any{"_id": "p1", "name": "Chair"}},
	})

	cmdOut, _, err := runCLIWithInput(t, backend, `{"name": "Chair"}`, "products", "update", "p1", "--file", "-")
	require.NoError(t, err)
	assert.Contains(t, cmdOut, "name: Chair")
}

func TestDeleteCommand(t *testing.T) {
	backend := testutil.NewScriptedTransport(testutil.Reply{Method: http.MethodDelete, Path: "/materials/m1"})

	out, _, err := runCLI(t, backend, "materials", "delete", "m1")
	require.NoError(t, err)
	assert.Equal(t, "Deleted material m1\n", out)
}

func TestDeleteCommand_Conflict(t *testing.T) {
	backend := testutil.NewScriptedTransport(testutil.Reply{
		Method:  http.MethodDelete,
		Path:    "/materials/m1",
		Status:  http.StatusConflict,
		Message: "Material in use",
	})

	out, _, err := runCLI(t, backend, "--format", "json", "materials", "delete", "m1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "Material in use", resp.Error.Message)
}

func TestReceiveCommand(t *testing.T) {
	backend := testutil.NewScriptedTransport(testutil.Reply{Method: http.MethodPut, Path: "/orders/receive/o1"})

	out, _, err := runCLI(t, backend, "orders", "receive", "o1")
	require.NoError(t, err)
	assert.Equal(t, "Received order o1\n", out)
}

func TestResourceCommands_ArgValidation(t *testing.T) {
	_, _, err := runCLI(t, testutil.NewScriptedTransport(), "materials", "get")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")

	_, _, err = runCLI(t, testutil.NewScriptedTransport(), "materials", "create")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"file" not set`)
}
