package controlplane

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/artpar/fnship/internal/core/signer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		Endpoint: srv.URL,
		Credential: signer.Credential{
			AccessKey: "AKTEST",
			SecretKey: "secret",
			Region:    "us-east-1",
			Service:   "faas",
		},
		Timeout: 5 * time.Second,
	}, nil)
	require.NoError(t, err)
	return c
}

func writeEnvelope(w http.ResponseWriter, result any) {
	env := map[string]any{
		"ResponseMetadata": map[string]any{
			"RequestId": "req-1",
			"Action":    "Test",
			"Version":   apiVersion,
			"Service":   "faas",
			"Region":    "us-east-1",
		},
	}
	if result != nil {
		env["Result"] = result
	}
	_ = json.NewEncoder(w).Encode(env)
}

// =============================================================================
// Invoke Tests
// =============================================================================

func TestInvoke_SendsActionVersionAndSignedHeaders(t *testing.T) {
	var gotQuery map[string][]string
	var gotAuth, gotDate, gotSha, gotCT string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotAuth = r.Header.Get("Authorization")
		gotDate = r.Header.Get("X-Date")
		gotSha = r.Header.Get("X-Content-Sha256")
		gotCT = r.Header.Get("Content-Type")
		writeEnvelope(w, Function{Id: "fn-1", Name: "api"})
	})

	fn, err := c.GetFunction(context.Background(), "fn-1")

	require.NoError(t, err)
	assert.Equal(t, "fn-1", fn.Id)
	assert.Equal(t, []string{"GetFunction"}, gotQuery["Action"])
	assert.Equal(t, []string{apiVersion}, gotQuery["Version"])
	assert.Contains(t, gotAuth, "HMAC-SHA256 Credential=AKTEST/")
	assert.NotEmpty(t, gotDate)
	assert.NotEmpty(t, gotSha)
	assert.Equal(t, "application/json", gotCT)
}

func TestInvoke_Non2xxIsAPIError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ResponseMetadata": map[string]any{
				"Error": map[string]any{"Code": "InvalidAccessKey", "Message": "no such key"},
			},
		})
	})

	_, err := c.GetFunction(context.Background(), "fn-1")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "GetFunction", apiErr.Action)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "InvalidAccessKey", apiErr.Code)
	assert.Contains(t, apiErr.Error(), "no such key")
}

func TestInvoke_MissingResultIsAPIErrorEvenOn200(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, nil)
	})

	_, err := c.GetFunction(context.Background(), "fn-1")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusOK, apiErr.StatusCode)
}

func TestInvoke_NonJSONBodyStillAPIError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	})

	err := c.UpdateFunction(context.Background(), "fn-1", "cr.example.com/team/api:v1")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Body, "upstream exploded")
}

// =============================================================================
// Action Payload Tests
// =============================================================================

func TestUpdateFunction_SendsImageSource(t *testing.T) {
	var params map[string]any
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&params)
		writeEnvelope(w, map[string]any{})
	})

	err := c.UpdateFunction(context.Background(), "fn-1", "cr.example.com/team/api:v1.0.1")

	require.NoError(t, err)
	assert.Equal(t, "fn-1", params["Id"])
	assert.Equal(t, "cr.example.com/team/api:v1.0.1", params["Source"])
	assert.Equal(t, "image", params["SourceType"])
}

func TestRelease_SendsFullTrafficWeight(t *testing.T) {
	var params map[string]any
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&params)
		writeEnvelope(w, map[string]any{})
	})

	err := c.Release(context.Background(), "fn-1", "deploy api v1.0.1")

	require.NoError(t, err)
	assert.Equal(t, "fn-1", params["FunctionId"])
	assert.Equal(t, float64(0), params["RevisionNumber"])
	assert.Equal(t, float64(100), params["TargetTrafficWeight"])
	assert.Equal(t, float64(100), params["RollingStep"])
	assert.Equal(t, "deploy api v1.0.1", params["Description"])
}

func TestListFunctions_ReturnsItems(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, listFunctionsResult{
			Items: []Function{{Id: "fn-1", Name: "api"}, {Id: "fn-2", Name: "worker"}},
			Total: 2,
		})
	})

	fns, err := c.ListFunctions(context.Background(), 1, 50, "")

	require.NoError(t, err)
	require.Len(t, fns, 2)
	assert.Equal(t, "worker", fns[1].Name)
}

// =============================================================================
// Concrete Poller Tests
// =============================================================================

func TestWaitForImageSync_SucceedsAfterSyncing(t *testing.T) {
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		status := "Syncing"
		if calls >= 2 {
			status = "Succeeded"
		}
		writeEnvelope(w, PollResult{Status: status})
	})
	var seen []string

	// Shrink the interval so the test does not sleep for real.
	err := PollUntil(context.Background(), "image sync",
		func(ctx context.Context) (PollResult, error) { return c.GetImageSyncStatus(ctx, "fn-1", "img") },
		func(r PollResult) bool { return r.Status == "Succeeded" },
		func(r PollResult) bool { return r.Status == "Failed" || r.Status == "Canceled" },
		func(r PollResult) { seen = append(seen, r.Status) },
		PollConfig{Timeout: time.Second, Interval: 0},
	)

	require.NoError(t, err)
	assert.Equal(t, []string{"Syncing", "Succeeded"}, seen)
}

func TestWaitForRelease_FailedStatusIsRemoteError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, PollResult{Status: "failed", Description: "revision crashed"})
	})

	err := PollUntil(context.Background(), "release",
		func(ctx context.Context) (PollResult, error) { return c.GetReleaseStatus(ctx, "fn-1") },
		func(r PollResult) bool { return r.Status == "done" },
		func(r PollResult) bool { return r.Status == "failed" },
		nil,
		PollConfig{Timeout: time.Second, Interval: 0},
	)

	var remoteErr *RemoteFailedError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "failed", remoteErr.Status)
}
