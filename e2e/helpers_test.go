package e2e_test

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/sitedock/sitedock"
	"github.com/sitedock/sitedock/archive"
	"github.com/sitedock/sitedock/auth"
	"github.com/sitedock/sitedock/database"
	sitehttp "github.com/sitedock/sitedock/http"
)

const testSecret = "e2e-secret-0123456789abcdef"

// startServer wires the full stack against the given database config and
// returns a running test server's base URL.
func startServer(t *testing.T, dbCfg database.Config) string {
	t.Helper()
	ctx := context.Background()

	store, closeDB, err := database.Connect(ctx, dbCfg)
	require.NoError(t, err)
	t.Cleanup(closeDB)

	sitesPath := filepath.Join(t.TempDir(), "sites")
	service, err := sitedock.NewSiteService(store.Sites, store.Users, archive.New(), sitedock.ServiceConfig{
		SitesPath: sitesPath,
	})
	require.NoError(t, err)

	tokens, err := auth.NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)
	authSvc := auth.NewService(store.Users, store.Sites, tokens)

	sitesRoot, err := os.OpenRoot(sitesPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sitesRoot.Close() })

	server := httptest.NewServer(sitehttp.NewHandler(&sitehttp.HandlerConfig{
		BaseURL:      "http://test.local",
		UploadTmpDir: t.TempDir(),
	}, service, authSvc, tokens, store.Users, sitesRoot).Router())
	t.Cleanup(server.Close)

	return server.URL
}

func postJSON(t *testing.T, url, token string, body any) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func registerAndLogin(t *testing.T, baseURL, username string) string {
	t.Helper()

	resp := postJSON(t, baseURL+"/auth/register", "", map[string]string{
		"username": username, "password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	resp = postJSON(t, baseURL+"/auth/login", "", map[string]string{
		"username": username, "password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var login struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &login)
	require.NotEmpty(t, login.Token)
	return login.Token
}

func tarGzBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name, Typeflag: tar.TypeReg, Mode: 0o644, Size: int64(len(body)),
		}))
		_, err := io.WriteString(tw, body)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func uploadSite(t *testing.T, baseURL, token string, siteID uuid.UUID, name string, files map[string]string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("uuid", siteID.String()))
	require.NoError(t, w.WriteField("siteName", name))
	fw, err := w.CreateFormFile("site", "site.tar.gz")
	require.NoError(t, err)
	_, err = fw.Write(tarGzBytes(t, files))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/sites", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func getBody(t *testing.T, url string) (int, string) {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}
