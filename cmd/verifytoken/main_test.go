package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sessionkit/verifytoken/core"
	"github.com/sessionkit/verifytoken/internal/testkeys"
)

const testSecret = "sk_test_cli"

func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func testToken(t *testing.T, key *testkeys.Key) string {
	now := time.Now()
	return key.Sign(t, map[string]any{
		"sub": "user_123",
		"sid": "sess_456",
		"azp": "https://app.example.com",
		"iat": now.Add(-time.Minute).Unix(),
		"nbf": now.Add(-time.Minute).Unix(),
		"exp": now.Add(time.Hour).Unix(),
	})
}

func TestVerifyCommand(t *testing.T) {
	key := testkeys.RSA(t, "ins_cli")
	srv := testkeys.NewJWKSServer(t, testSecret, key)
	token := testToken(t, key)

	t.Run("token as argument", func(t *testing.T) {
		out, err := runCmd(t, "", "verify", "--api-url", srv.URL, "--secret-key", testSecret, token)
		require.NoError(t, err)

		var claims map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &claims))
		assert.Equal(t, "user_123", claims["sub"])
		assert.Equal(t, "sess_456", claims["sid"])
		assert.Equal(t, "https://app.example.com", claims["azp"])
		assert.Contains(t, claims, "exp")
	})

	t.Run("token from stdin", func(t *testing.T) {
		out, err := runCmd(t, token+"\n", "verify", "--api-url", srv.URL, "--secret-key", testSecret, "-")
		require.NoError(t, err)
		assert.Contains(t, out, `"sub": "user_123"`)
	})

	t.Run("authorized party mismatch", func(t *testing.T) {
		_, err := runCmd(t, "", "verify",
			"--api-url", srv.URL,
			"--secret-key", testSecret,
			"--authorized-parties", "https://other.example.com",
			token,
		)
		require.Error(t, err)
		code, ok := core.CodeOf(err)
		require.True(t, ok)
		assert.Equal(t, core.CodeUnauthorizedParty, code)
		assert.Equal(t, 1, exitCode(err))
	})

	t.Run("networkless with jwt key", func(t *testing.T) {
		hits := srv.Hits()
		out, err := runCmd(t, "", "verify", "--jwt-key", key.PublicPEM(t), token)
		require.NoError(t, err)
		assert.Contains(t, out, `"sub": "user_123"`)
		assert.Equal(t, hits, srv.Hits())
	})

	t.Run("no key configured", func(t *testing.T) {
		_, err := runCmd(t, "", "verify", token)
		require.Error(t, err)
	})
}

func TestVerifyCommand_BackendUnavailable(t *testing.T) {
	key := testkeys.RSA(t, "ins_cli")
	srv := testkeys.NewJWKSServer(t, testSecret, key)
	srv.SetStatus(http.StatusBadGateway)

	_, err := runCmd(t, "", "verify", "--api-url", srv.URL, "--secret-key", testSecret, testToken(t, key))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrTransport)
	assert.Equal(t, 3, exitCode(err))
}

func TestJWKSCommand(t *testing.T) {
	key := testkeys.EC(t, "ins_ec")
	srv := testkeys.NewJWKSServer(t, testSecret, key)

	out, err := runCmd(t, "", "jwks", "--api-url", srv.URL, "--secret-key", testSecret)
	require.NoError(t, err)

	var set struct {
		Keys []struct {
			KeyID string `json:"kid"`
			Type  string `json:"kty"`
		} `json:"keys"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &set))
	require.Len(t, set.Keys, 1)
	assert.Equal(t, "ins_ec", set.Keys[0].KeyID)
	assert.Equal(t, "EC", set.Keys[0].Type)
}

func TestReadToken(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{name: "argument", args: []string{" abc.def.ghi "}, want: "abc.def.ghi"},
		{name: "dash reads stdin", stdin: "abc.def.ghi\n", args: []string{"-"}, want: "abc.def.ghi"},
		{name: "no argument reads stdin", stdin: "abc.def.ghi", want: "abc.def.ghi"},
		{name: "only first line", stdin: "first\nsecond\n", want: "first"},
		{name: "empty stdin", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := readToken(strings.NewReader(tc.stdin), tc.args)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: core.ErrTokenExpired, want: 1},
		{err: fmt.Errorf("wrapped: %w", core.ErrSignatureInvalid), want: 1},
		{err: core.ErrNetwork, want: 3},
		{err: core.ErrMissingKeyConfiguration, want: 4},
		{err: assert.AnError, want: 2},
	}

	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			assert.Equal(t, tc.want, exitCode(tc.err))
		})
	}
}
