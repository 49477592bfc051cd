package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/account"
)

// isolateEnv clears every variable accountctl reads so tests start from defaults.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DEFAULT_ADMIN_USERNAME", "DEFAULT_ADMIN_PASSWORD", "JWT_SECRET", "JWT_EXPIRES_IN",
		"JWT_ISSUER", "ACCESS_KEY_SECRET", "BCRYPT_COST", "LOG_LEVEL", "LOG_DEV", "LOG_FILE",
		"LOG_MAX_AGE", "LOG_ROTATION_TIME", "SNOWFLAKE_NODE",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("BCRYPT_COST", "4")
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestRun_Usage(t *testing.T) {
	isolateEnv(t)

	code, _, stderr := runCLI(t, "")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "usage: accountctl")
	assert.Contains(t, stderr, "bootstrap")
	assert.Contains(t, stderr, `Run "accountctl bootstrap" once per deployment before any other command.`)

	code, _, stderr = runCLI(t, "", "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "frobnicate"`)

	code, _, _ = runCLI(t, "", "--help")
	assert.Equal(t, 0, code)
}

func TestRun_UnknownStore(t *testing.T) {
	isolateEnv(t)
	t.Setenv("JWT_SECRET", "s")

	code, _, stderr := runCLI(t, "", "--env-file", missingEnvFile(t), "--store", "redis", "list")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown store "redis"`)
}

func TestRun_BootstrapWithoutAdminPasswordFails(t *testing.T) {
	isolateEnv(t)
	t.Setenv("JWT_SECRET", "s")

	code, stdout, stderr := runCLI(t, "", "--env-file", missingEnvFile(t), "--store", "memory", "bootstrap")
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "configuration error")
	assert.Contains(t, stderr, "DEFAULT_ADMIN_PASSWORD")
}

func TestRun_MissingJWTSecretFails(t *testing.T) {
	isolateEnv(t)

	code, _, stderr := runCLI(t, "", "--env-file", missingEnvFile(t), "--store", "memory", "list")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "JWT_SECRET")
}

func TestRun_BootstrapFromEnvFile(t *testing.T) {
	isolateEnv(t)
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"JWT_SECRET=from-dotenv\nDEFAULT_ADMIN_USERNAME=root\nDEFAULT_ADMIN_PASSWORD=b00tstrap\n",
	), 0o600))
	for _, k := range []string{"JWT_SECRET", "DEFAULT_ADMIN_USERNAME", "DEFAULT_ADMIN_PASSWORD"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	code, stdout, stderr := runCLI(t, "", "--env-file", envFile, "--store", "memory", "bootstrap")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "admin account ready: root")
}

func TestRun_Genhash(t *testing.T) {
	isolateEnv(t)

	code, stdout, stderr := runCLI(t, "Sw0rdfish!\n", "--env-file", missingEnvFile(t), "--password-stdin", "genhash")
	require.Equal(t, 0, code, stderr)
	assert.True(t, strings.HasPrefix(stdout, "$2a$04$"), stdout)
}

func TestExitCode(t *testing.T) {
	var buf bytes.Buffer

	assert.Equal(t, 0, exitCode(&buf, nil))
	assert.Equal(t, 2, exitCode(&buf, usageErrorf("bad flag")))
	assert.Equal(t, 1, exitCode(&buf, account.ErrConfiguration))
	assert.Equal(t, 1, exitCode(&buf, errors.New("boom")))
	assert.Contains(t, buf.String(), "usage error: bad flag")
	assert.Contains(t, buf.String(), "error: boom")
}
