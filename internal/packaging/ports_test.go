package packaging

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExporterAndNotifierDefaults(t *testing.T) {
	assert.IsType(t, NoopExporter{}, NewExporter(" "))
	assert.IsType(t, NoopNotifier{}, NewNotifier("", time.Second))
	assert.IsType(t, &CommandExporter{}, NewExporter("soffice {src}"))
}

func TestCommandExporter(t *testing.T) {
	if _, err := os.Stat("/bin/cp"); err != nil {
		t.Skip("cp not available")
	}
	src := filepath.Join(t.TempDir(), "24017 PAL1 EMBALLAGE.xlsm")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	out, err := (&CommandExporter{Command: "/bin/cp {src} {out}", Ext: ".pdf"}).Export(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(src), "24017 PAL1 EMBALLAGE.pdf"), out)

	_, err = (&CommandExporter{Command: "/bin/cp {src} {dir}/elsewhere.pdf", Ext: ".txt"}).Export(context.Background(), src)
	assert.Error(t, err)
}

func TestNtfyNotifier(t *testing.T) {
	type hit struct {
		method, title, filename, email, body string
	}
	var (
		mu   sync.Mutex
		hits []hit
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		hits = append(hits, hit{r.Method, r.Header.Get("Title"), r.Header.Get("Filename"), r.Header.Get("Email"), string(b)})
		mu.Unlock()
		if r.Header.Get("Email") == "bad@cyramp.test" {
			http.Error(w, "nope", http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	att := filepath.Join(t.TempDir(), "m.xlsm")
	require.NoError(t, os.WriteFile(att, []byte("manifest"), 0o644))

	n := NewNotifier(srv.URL, time.Second)
	err := n.Notify(context.Background(), Notification{
		Recipients: []string{"expedition@cyramp.test", "bad@cyramp.test"},
		Subject:    "Emballage 24017 PAL1",
		Body:       "ok",
		Attachment: att,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad@cyramp.test")

	require.Len(t, hits, 2)
	assert.Equal(t, hit{http.MethodPut, "Emballage 24017 PAL1", "m.xlsm", "expedition@cyramp.test", "manifest"}, hits[0])

	hits = nil
	require.NoError(t, n.Notify(context.Background(), Notification{Subject: "plain", Body: "hello"}))
	require.Len(t, hits, 1)
	assert.Equal(t, http.MethodPost, hits[0].method)
	assert.Equal(t, "hello", hits[0].body)
}
