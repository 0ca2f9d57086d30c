package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHandler_ExposesWorkspaceMetrics(t *testing.T) {
	RecordAutosave(true, 15*time.Millisecond, 2048)
	RecordAutosave(false, time.Millisecond, 0)
	RecordHydration("default")
	RecordEncodeFailure()
	RecordDecodeFailure()
	SetWorkspaceFiles(3)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)

	for _, want := range []string{
		`marktex_autosave_total{status="success"}`,
		`marktex_autosave_total{status="error"}`,
		"marktex_autosave_duration_seconds_bucket",
		"marktex_snapshot_bytes 2048",
		`marktex_hydrations_total{source="default"}`,
		"marktex_asset_encode_failures_total",
		"marktex_asset_decode_failures_total",
		"marktex_workspace_files 3",
	} {
		require.Contains(t, text, want)
	}
}
