//go:build integration

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/cle/internal/serverlite"
)

// startServer boots an in-memory licensing server on a free port and waits
// until it answers health checks.
func startServer(t *testing.T) (*serverlite.Server, string) {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())

	srv, err := serverlite.NewServer(addr)
	require.NoError(t, err)
	srv.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
	})

	base := "http://" + addr
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond, "server never became healthy")

	return srv, base
}

func postJSON(t *testing.T, url string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func getJSON(t *testing.T, url string) map[string]interface{} {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return decoded
}

func dataField(t *testing.T, envelope map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := envelope["data"].(map[string]interface{})
	require.True(t, ok, "response envelope carries no data object: %v", envelope)
	return data
}

func TestLicenseLifecycleFlow(t *testing.T) {
	srv, base := startServer(t)

	// Before any license is loaded the service runs on the free tier.
	entitlements := dataField(t, getJSON(t, base+"/api/v1/entitlements"))
	assert.Equal(t, "free", entitlements["tier"])
	assert.Equal(t, false, entitlements["licensed"])

	active := dataField(t, getJSON(t, base+"/api/v1/licenses/active"))
	assert.Equal(t, false, active["present"])

	// Load a signed license granting 5 clients and a pinned issuer set.
	limit := int64(5)
	token, err := srv.MintLicense(serverlite.LicenseSpec{
		ID:           "lic-e2e-001",
		ClientLimit:  &limit,
		ValidIssuers: []string{"https://tokens.example.com"},
	})
	require.NoError(t, err)

	resp, body := postJSON(t, base+"/api/v1/licenses", map[string]string{"license": token})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "upload answered: %v", body)
	summary := dataField(t, body)
	assert.Equal(t, "lic-e2e-001", summary["id"])
	assert.Equal(t, "active", summary["status"])

	entitlements = dataField(t, getJSON(t, base+"/api/v1/entitlements"))
	assert.Equal(t, true, entitlements["licensed"])
	assert.Equal(t, float64(5), entitlements["client_limit"])

	active = dataField(t, getJSON(t, base+"/api/v1/licenses/active"))
	assert.Equal(t, true, active["present"])

	// A tampered token is refused and changes nothing.
	resp, _ = postJSON(t, base+"/api/v1/licenses", map[string]string{"license": token + "AAAA"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	licenses := dataField(t, getJSON(t, base+"/api/v1/licenses"))
	assert.Equal(t, float64(1), licenses["count"])
}

func TestClientAdmissionFlow(t *testing.T) {
	srv, base := startServer(t)

	limit := int64(5)
	token, err := srv.MintLicense(serverlite.LicenseSpec{ClientLimit: &limit})
	require.NoError(t, err)
	resp, _ := postJSON(t, base+"/api/v1/licenses", map[string]string{"license": token})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Limit 5 with the default tolerance admits six distinct clients.
	for i := 1; i <= 6; i++ {
		resp, body := postJSON(t, base+"/api/v1/admission/client",
			map[string]string{"client_id": fmt.Sprintf("client-%d", i)})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, dataField(t, body)["allowed"], "client %d", i)
	}

	resp, body := postJSON(t, base+"/api/v1/admission/client",
		map[string]string{"client_id": "client-7"})
	require.Equal(t, http.StatusOK, resp.StatusCode, "a refusal is a decision, not an error")
	decision := dataField(t, body)
	assert.Equal(t, false, decision["allowed"])

	// Known clients stay admitted after the limit is reached.
	resp, body = postJSON(t, base+"/api/v1/admission/client",
		map[string]string{"client_id": "client-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, dataField(t, body)["allowed"])
}

func TestIssuerAdmissionFlow(t *testing.T) {
	srv, base := startServer(t)

	token, err := srv.MintLicense(serverlite.LicenseSpec{
		ValidIssuers: []string{"https://tokens.example.com"},
	})
	require.NoError(t, err)
	resp, _ := postJSON(t, base+"/api/v1/licenses", map[string]string{"license": token})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := postJSON(t, base+"/api/v1/admission/issuer",
		map[string]string{"issuer": "https://tokens.example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, dataField(t, body)["allowed"])

	resp, body = postJSON(t, base+"/api/v1/admission/issuer",
		map[string]string{"issuer": "https://rogue.example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decision := dataField(t, body)
	assert.Equal(t, false, decision["allowed"])
	assert.Equal(t, "not_whitelisted", decision["reason"])
}
