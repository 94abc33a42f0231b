package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTransportClient(t *testing.T, manager *Manager, onAuthFailure func()) *http.Client {
	t.Helper()
	return &http.Client{
		Transport: NewTransport(nil, manager, onAuthFailure, testLogger()),
		Timeout:   5 * time.Second,
	}
}

func TestTransport_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	manager, _, _ := newTestManager(t, &fakeRefresher{})
	require.NoError(t, manager.StoreTokens(NewTokenRecord("A1", "R1", time.Hour, time.Now()), false))

	client := newTransportClient(t, manager, nil)
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Bearer A1", gotAuth)
}

func TestTransport_RetriesOnceAfterRefresh(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		if r.Header.Get("Authorization") != "Bearer A2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	refresher := &fakeRefresher{record: NewTokenRecord("A2", "R2", time.Hour, time.Now())}
	manager, _, _ := newTestManager(t, refresher)
	// Token looks fresh locally but the backend has already revoked it.
	require.NoError(t, manager.StoreTokens(NewTokenRecord("A1", "R1", time.Hour, time.Now()), false))

	var authFailed bool
	client := newTransportClient(t, manager, func() { authFailed = true })

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, atomic.LoadInt32(&requests))
	assert.Equal(t, 1, refresher.callCount())
	assert.False(t, authFailed)
	assert.Equal(t, "A2", manager.AccessToken(), "refreshed record must be persisted")
}

func TestTransport_NeverRetriesTwice(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	refresher := &fakeRefresher{record: NewTokenRecord("A2", "R2", time.Hour, time.Now())}
	manager, _, _ := newTestManager(t, refresher)
	require.NoError(t, manager.StoreTokens(NewTokenRecord("A1", "R1", time.Hour, time.Now()), false))

	var authFailed bool
	client := newTransportClient(t, manager, func() { authFailed = true })

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.EqualValues(t, 2, atomic.LoadInt32(&requests), "a persistently rejecting backend gets exactly one resubmission")
	assert.True(t, authFailed)
	assert.Empty(t, manager.AccessToken(), "session must be cleared after the failed retry")
}

func TestTransport_RefreshFailureEndsSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	refresher := &fakeRefresher{err: &Error{Kind: KindRefreshFailure, Message: "revoked"}}
	manager, _, _ := newTestManager(t, refresher)
	require.NoError(t, manager.StoreTokens(NewTokenRecord("A1", "R1", time.Hour, time.Now()), true))

	var authFailed bool
	client := newTransportClient(t, manager, func() { authFailed = true })

	_, err := client.Get(server.URL)
	require.Error(t, err)
	assert.True(t, authFailed)
	assert.Empty(t, manager.AccessToken())
}

func TestTransport_TransientRefreshFailureKeepsSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	refresher := &fakeRefresher{err: errors.New("request failed: connection refused")}
	manager, _, _ := newTestManager(t, refresher)
	require.NoError(t, manager.StoreTokens(NewTokenRecord("A1", "R1", time.Hour, time.Now()), true))

	var authFailed bool
	client := newTransportClient(t, manager, func() { authFailed = true })

	_, err := client.Get(server.URL)
	require.Error(t, err)
	assert.False(t, authFailed, "a network failure during refresh must not end the session")
	assert.Equal(t, "A1", manager.AccessToken(), "the stored record must survive for the next attempt")
}

func TestTransport_NonAuthErrorsPassThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	refresher := &fakeRefresher{}
	manager, _, _ := newTestManager(t, refresher)
	require.NoError(t, manager.StoreTokens(NewTokenRecord("A1", "R1", time.Hour, time.Now()), false))

	client := newTransportClient(t, manager, nil)
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, 0, refresher.callCount(), "non-401 responses must not trigger a refresh")
	assert.Equal(t, "A1", manager.AccessToken())
}

func TestTransport_UnauthenticatedRequestFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the backend without a token")
	}))
	defer server.Close()

	manager, _, _ := newTestManager(t, &fakeRefresher{})

	var authFailed bool
	client := newTransportClient(t, manager, func() { authFailed = true })

	_, err := client.Get(server.URL)
	require.Error(t, err)
	assert.True(t, authFailed)
}
