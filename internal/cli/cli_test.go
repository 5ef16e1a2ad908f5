package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/cienspay/cienspay-web/apiclient"
	"github.com/cienspay/cienspay-web/apiclient/backendfake"
	"github.com/cienspay/cienspay-web/card"
	"github.com/cienspay/cienspay-web/internal/cli"
	"github.com/stretchr/testify/require"
)

// testFixture holds all test dependencies
type testFixture struct {
	backend     *backendfake.Backend
	sessionFile string
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	backend := backendfake.New()
	t.Cleanup(backend.Close)

	// Keep the developer's own config and environment out of the tests
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"CIENSPAY_API_URL", "CIENSPAY_SESSION_FILE", "CIENSPAY_ADMIN_EMAIL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	return &testFixture{
		backend:     backend,
		sessionFile: filepath.Join(t.TempDir(), "session.json"),
	}
}

// run executes the CLI with the fixture's backend and session file
func (f *testFixture) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := cli.NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--api-url", f.backend.BaseURL(), "--session-file", f.sessionFile}, args...))
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestLoginWhoamiLogout(t *testing.T) {
	f := setupTestFixture(t)

	out, _, err := f.run(t, "", "login", "--email", backendfake.UserEmail, "--password", backendfake.UserPassword)
	require.NoError(t, err)
	require.Contains(t, out, "Logged in as ana@example.com (user)")
	require.FileExists(t, f.sessionFile)

	out, _, err = f.run(t, "", "whoami")
	require.NoError(t, err)
	require.Contains(t, out, "Ana Pérez")
	require.Contains(t, out, "Admin:     false")
	require.Zero(t, f.backend.Calls(apiclient.PathProfile))

	out, _, err = f.run(t, "", "logout")
	require.NoError(t, err)
	require.Contains(t, out, "Logged out")
	require.NoFileExists(t, f.sessionFile)

	_, _, err = f.run(t, "", "whoami")
	require.ErrorContains(t, err, "not logged in")
}

func TestLogin_PasswordFromStdin(t *testing.T) {
	f := setupTestFixture(t)

	out, _, err := f.run(t, backendfake.AdminPassword+"\n", "login", "--email", backendfake.AdminEmail)
	require.NoError(t, err)
	require.Contains(t, out, "(admin)")
}

func TestLogin_Failures(t *testing.T) {
	f := setupTestFixture(t)

	_, errOut, err := f.run(t, "", "login", "--email", "bad", "--password", "x")
	require.Error(t, err)
	require.Contains(t, errOut, "email: Email inválido")
	require.Zero(t, f.backend.Calls(apiclient.PathLogin))

	_, errOut, err = f.run(t, "", "login", "--email", backendfake.UserEmail, "--password", "Incorrecta1")
	require.Error(t, err)
	require.Contains(t, errOut, "Credenciales inválidas")
	require.NoFileExists(t, f.sessionFile)
}

func TestWhoami_RemoteRefreshesToken(t *testing.T) {
	f := setupTestFixture(t)
	_, _, err := f.run(t, "", "login", "--email", backendfake.UserEmail, "--password", backendfake.UserPassword)
	require.NoError(t, err)
	f.backend.ExpireAccessTokens()

	out, _, err := f.run(t, "", "whoami", "--remote")
	require.NoError(t, err)
	require.Contains(t, out, "ana@example.com")
	require.Equal(t, 1, f.backend.Calls(apiclient.PathRefreshCustom))

	// The refreshed access token was persisted
	_, _, err = f.run(t, "", "whoami", "--remote")
	require.NoError(t, err)
	require.Equal(t, 1, f.backend.Calls(apiclient.PathRefreshCustom))
}

func TestAdminUsers(t *testing.T) {
	f := setupTestFixture(t)
	_, _, err := f.run(t, "", "login", "--email", backendfake.AdminEmail, "--password", backendfake.AdminPassword)
	require.NoError(t, err)

	out, _, err := f.run(t, "", "admin", "users", "--search", "ana")
	require.NoError(t, err)
	require.Contains(t, out, "ana@example.com")
	require.Contains(t, out, "125000")
	require.NotContains(t, out, backendfake.AdminEmail)
	require.Contains(t, out, "Page 1 of 1 (1 users)")
}

func TestAdminUsers_Forbidden(t *testing.T) {
	f := setupTestFixture(t)
	_, _, err := f.run(t, "", "login", "--email", backendfake.UserEmail, "--password", backendfake.UserPassword)
	require.NoError(t, err)

	_, _, err = f.run(t, "", "admin", "users")
	require.ErrorContains(t, err, "No tiene permisos")
}

func TestCardPreview(t *testing.T) {
	f := setupTestFixture(t)

	out, _, err := f.run(t, "", "card", "preview", "-n", "3")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	grouped := regexp.MustCompile(`^\d{4} \d{4} \d{4} \d{4}$`)
	for _, line := range lines {
		require.Regexp(t, grouped, line)
		require.True(t, card.ValidLuhn(strings.ReplaceAll(line, " ", "")))
		require.True(t, strings.HasPrefix(strings.ReplaceAll(line, " ", ""), card.BIN))
	}

	_, _, err = f.run(t, "", "card", "preview", "-n", "0")
	require.Error(t, err)
}
