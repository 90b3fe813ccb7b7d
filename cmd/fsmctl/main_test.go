package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/librescoot/relayfsm/internal/logging"
	"github.com/librescoot/relayfsm/machinefile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate", "testdata/turnstile.yaml")
	require.NoError(t, err)
	assert.Equal(t, "testdata/turnstile.yaml is valid: 2 states, 2 events\n", out)

	_, err = execute(t, "validate", "testdata/dangling.yaml")
	assert.ErrorContains(t, err, `target "open" is not declared`)
}

func TestRunCommand(t *testing.T) {
	out, err := execute(t, "run", "testdata/turnstile.yaml", "push", "coin", "coin", "push")
	require.NoError(t, err)

	want := "enter locked\n" +
		"effect buzz\n" +
		"exit locked\n" +
		"enter unlocked\n" +
		"effect unlock\n" +
		"exit unlocked\n" +
		"enter locked\n" +
		"effect lock\n" +
		"final locked\n"
	assert.Equal(t, want, out)
}

func TestRunRejectsBadLogLevel(t *testing.T) {
	_, err := execute(t, "--log-level", "loud", "run", "testdata/turnstile.yaml")
	assert.ErrorContains(t, err, "invalid log level")
}

func TestServeRestoresFromRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	f, err := machinefile.Load("testdata/turnstile.yaml")
	require.NoError(t, err)
	cfg := serveConfig{redisAddr: mr.Addr(), metrics: true}

	handler, cleanup, err := buildServer(context.Background(), f, cfg, logging.NewNop())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/events/coin", nil))
	require.Equal(t, http.StatusOK, w.Code)
	cleanup()

	stored, err := mr.Get("relayfsm:state:turnstile")
	require.NoError(t, err)
	assert.Equal(t, `"unlocked"`, stored)

	handler, cleanup, err = buildServer(context.Background(), f, cfg, logging.NewNop())
	require.NoError(t, err)
	defer cleanup()

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/state", nil))
	assert.JSONEq(t, `{"state":"unlocked"}`, w.Body.String())

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/events/push", nil))
	assert.JSONEq(t, `{"state":"locked","changed":true}`, w.Body.String())

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `relayfsm_transitions_total{from="unlocked",machine="turnstile",to="locked"} 1`)
}

func TestServeIgnoresUndeclaredStoredState(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("relayfsm:state:turnstile", `"jammed"`))
	f, err := machinefile.Load("testdata/turnstile.yaml")
	require.NoError(t, err)

	handler, cleanup, err := buildServer(context.Background(), f, serveConfig{redisAddr: mr.Addr()}, logging.NewNop())
	require.NoError(t, err)
	defer cleanup()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/state", nil))
	assert.JSONEq(t, `{"state":"locked"}`, w.Body.String())

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
