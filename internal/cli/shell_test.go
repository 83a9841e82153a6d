package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/erpsync/internal/testutil"
)

func TestShell_SharesOneClient(t *testing.T) {
	backend := testutil.NewScriptedTransport(materialsPage(), loginReply(true))
	input := strings.Join([]string{
		"materials list",
		"materials list --page 5",
		"whoami",
		`login --email ada@example.com --password "secret1"`,
		"whoami",
		"bogus",
		"exit",
		"materials list",
	}, "\n")

	out, errOut, err := execute(t, &RootOptions{Transport: backend, Tokens: &testutil.MemoryTokens{}}, input, "shell")
	require.NoError(t, err)

	assert.Contains(t, out, "Steel")
	assert.Contains(t, errOut, "Error: page 5 is out of range (1-1)")
	assert.Contains(t, out, "Not signed in")
	assert.Contains(t, out, "Signed in as ada (administrator)")
	assert.Contains(t, out, "ada <ada@example.com> (administrator)")
	assert.Contains(t, errOut, `unknown command "bogus"`)
	assert.Equal(t, 7, strings.Count(out, shellPrompt), "input after exit is not read")
	assert.Len(t, backend.Requests(), 2)
}

func TestShell_EndOfInput(t *testing.T) {
	out, _, err := execute(t, &RootOptions{Transport: testutil.NewScriptedTransport(), Tokens: &testutil.MemoryTokens{}}, "\n\n", "shell")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat(shellPrompt, 3)+"\n", out)
}

func TestShell_QuoteErrorsKeepRunning(t *testing.T) {
	out, errOut, err := execute(t, &RootOptions{Transport: testutil.NewScriptedTransport(), Tokens: &testutil.MemoryTokens{}}, "whoami 'oops\nwhoami\nquit\n", "shell")
	require.NoError(t, err)
	assert.Contains(t, errOut, "unterminated ' quote")
	assert.Contains(t, out, "Not signed in")
}

func TestServeMetrics_InstallsAndClearsMetrics(t *testing.T) {
	opts := &ShellOptions{RootOptions: &RootOptions{}, MetricsAddr: "127.0.0.1:0"}

	shutdown := serveMetrics(opts, &strings.Builder{})
	assert.NotNil(t, opts.metrics)
	shutdown()
	assert.Nil(t, opts.metrics)
}

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"materials list", []string{"materials", "list"}},
		{"  materials   list\t--all ", []string{"materials", "list", "--all"}},
		{`register --full-name "Ada Lovelace"`, []string{"register", "--full-name", "Ada Lovelace"}},
		{`vendors list --search 'acme "steel"'`, []string{"vendors", "list", "--search", `acme "steel"`}},
		{`get a\ b`, []string{"get", "a b"}},
		{`x ""`, []string{"x", ""}},
		{`say "a\"b"`, []string{"say", `a"b`}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := splitArgs(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitArgs_Errors(t *testing.T) {
	_, err := splitArgs(`say "open`)
	assert.ErrorContains(t, err, `unterminated " quote`)

	_, err = splitArgs(`say trailing\`)
	assert.ErrorContains(t, err, "trailing backslash")
}
