package devserver_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-admin-client/devserver/devservertest"
)

type tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"userId"`
	Role         string `json:"role"`
}

func call(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func login(t *testing.T, b *devservertest.Backend) tokens {
	t.Helper()
	resp := call(t, http.MethodPost, b.URL()+"/auth/login", "", map[string]string{
		"email":    devservertest.Email,
		"password": devservertest.Password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out tokens
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestLogin(t *testing.T) {
	b := devservertest.Start(t)

	out := login(t, b)
	require.NotEmpty(t, out.AccessToken)
	require.NotEmpty(t, out.RefreshToken)
	require.Equal(t, b.User.ID, out.UserID)
	require.Equal(t, "admin", out.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	b := devservertest.Start(t)

	resp := call(t, http.MethodPost, b.URL()+"/auth/login", "", map[string]string{
		"email":    devservertest.Email,
		"password": "nope",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestExpiredAccessTokenIsRejectedUntilRefreshed(t *testing.T) {
	b := devservertest.Start(t)
	out := login(t, b)

	require.Equal(t, http.StatusOK, call(t, http.MethodGet, b.URL()+"/contracts", out.AccessToken, nil).StatusCode)

	b.ExpireAccessTokens()
	require.Equal(t, http.StatusUnauthorized, call(t, http.MethodGet, b.URL()+"/contracts", out.AccessToken, nil).StatusCode)

	resp := call(t, http.MethodPost, b.URL()+"/auth/refresh", "", map[string]string{"refresh_token": out.RefreshToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var refreshed tokens
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&refreshed))
	require.Equal(t, 1, b.RefreshCalls())

	require.Equal(t, http.StatusOK, call(t, http.MethodGet, b.URL()+"/contracts", refreshed.AccessToken, nil).StatusCode)
}

func TestRevokedRefreshToken(t *testing.T) {
	b := devservertest.Start(t)
	out := login(t, b)

	require.NoError(t, b.RevokeRefreshTokens())
	resp := call(t, http.MethodPost, b.URL()+"/auth/refresh", "", map[string]string{"refresh_token": out.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	b := devservertest.Start(t)
	out := login(t, b)

	require.Equal(t, http.StatusOK, call(t, http.MethodGet, b.URL()+"/admin/auth/logout", out.AccessToken, nil).StatusCode)
	require.Equal(t, 1, b.LogoutCalls())

	resp := call(t, http.MethodPost, b.URL()+"/auth/refresh", "", map[string]string{"refresh_token": out.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestResourceCRUD(t *testing.T) {
	b := devservertest.Start(t)
	token := login(t, b).AccessToken

	resp := call(t, http.MethodPost, b.URL()+"/stations", token, map[string]any{"name": "Aktobe", "code": "AKT"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	id := created["id"].(string)
	require.NotEmpty(t, id)

	resp = call(t, http.MethodPatch, b.URL()+"/stations/"+id, token, map[string]any{"name": "Aktobe-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = call(t, http.MethodGet, b.URL()+"/stations/"+id, token, nil)
	var got map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Equal(t, "Aktobe-1", got["name"])
	require.Equal(t, "AKT", got["code"])

	require.Equal(t, http.StatusNoContent, call(t, http.MethodDelete, b.URL()+"/stations/"+id, token, nil).StatusCode)
	require.Equal(t, http.StatusNotFound, call(t, http.MethodGet, b.URL()+"/stations/"+id, token, nil).StatusCode)
}

func TestListFiltersAndPages(t *testing.T) {
	b := devservertest.Start(t)
	token := login(t, b).AccessToken
	for _, status := range []string{"open", "closed", "open", "open"} {
		b.Seed("contracts", map[string]any{"status": status})
	}

	resp := call(t, http.MethodGet, b.URL()+"/contracts?status=open&page=2&limit=2", token, nil)
	var page []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	require.Len(t, page, 1)
	require.Equal(t, "open", page[0]["status"])
}

func TestUnknownResource(t *testing.T) {
	b := devservertest.Start(t)
	token := login(t, b).AccessToken

	require.Equal(t, http.StatusNotFound, call(t, http.MethodGet, b.URL()+"/spaceships", token, nil).StatusCode)
}

func TestMultipartUpload(t *testing.T) {
	b := devservertest.Start(t)
	token := login(t, b).AccessToken

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("number", "INV-7"))
	part, err := w.CreateFormFile("scan", "invoice.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, b.URL()+"/invoices", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.Equal(t, "INV-7", created["number"])
	files := created["files"].([]any)
	require.Len(t, files, 1)
	require.Equal(t, "invoice.pdf", files[0].(map[string]any)["name"])
}

func TestCorsPreflight(t *testing.T) {
	b := devservertest.Start(t)

	req, err := http.NewRequest(http.MethodOptions, b.URL()+"/auth/login", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}
