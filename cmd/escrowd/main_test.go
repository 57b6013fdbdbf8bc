package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/escrowledger/internal/testutil"
)

func Test_run(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	noenv := func(string) string { return "" }
	getwd := func() (string, error) { return t.TempDir(), nil }

	port, err := testutil.RandomPort()
	require.NoError(t, err, "failed to get random port to start server")
	listenAddr := fmt.Sprintf("localhost:%d", port)

	t.Run("serve until cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		t.Cleanup(cancel)

		done := make(chan error, 1)
		go func() {
			done <- run(ctx, noenv, getwd, []string{
				"--address", listenAddr,
				"--log-level", "debug",
				"--database", pg.DSN,
				"--secret-key", "secret",
				"--webhook-secret", "whsec_test",
			})
		}()

		require.Eventually(t, func() bool {
			resp, err := http.Get("http://" + listenAddr + "/healthz")
			if err != nil {
				return false
			}
			_ = resp.Body.Close()
			return resp.StatusCode == http.StatusOK
		}, 5*time.Second, 50*time.Millisecond, "server should become healthy")

		cancel()
		require.NoError(t, <-done, "on correct stop should not return error")
	})

	t.Run("webhook secret from dotenv", func(t *testing.T) {
		wd := t.TempDir()
		dotenv := "WEBHOOK_SECRET=whsec_dotenv\nSECRET_KEY=secret\n"
		require.NoError(t, os.WriteFile(filepath.Join(wd, ".env"), []byte(dotenv), 0o600))

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		t.Cleanup(cancel)

		err := run(ctx, noenv, func() (string, error) { return wd, nil }, []string{
			"--address", listenAddr,
			"--database", pg.DSN,
		})

		require.NoError(t, err)
	})

	t.Run("fail without webhook secret", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		t.Cleanup(cancel)

		err := run(ctx, noenv, getwd, []string{
			"--address", listenAddr,
			"--database", pg.DSN,
			"--secret-key", "secret",
		})

		require.Error(t, err, "missing webhook secret must fail startup")
		require.ErrorContains(t, err, "webhook secret is required")
	})
}
