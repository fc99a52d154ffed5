package accounts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileJSON(t *testing.T) {
	records, err := LoadFile("../../testdata/scheme.json")
	require.NoError(t, err)
	assert.Equal(t, DefaultScheme(), records)
}

func TestSaveFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"scheme.json", "scheme.csv"} {
		path := filepath.Join(dir, "nested", name)
		require.NoError(t, SaveFile(path, DefaultScheme()))

		got, err := LoadFile(path)
		require.NoError(t, err, "file: %s", name)
		assert.Equal(t, DefaultScheme(), got, "file: %s", name)
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "none.json"))
	assert.Error(t, err)
}

func TestFetch(t *testing.T) {
	body, err := os.ReadFile("../../testdata/scheme.json")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rgs.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	records, err := Fetch(context.Background(), srv.Client(), srv.URL+"/rgs.json")
	require.NoError(t, err)
	assert.Len(t, records, len(DefaultScheme()))

	_, err = Fetch(context.Background(), srv.Client(), srv.URL+"/missing")
	assert.Error(t, err)
}
