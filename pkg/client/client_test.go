package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_LoginStoresToken(t *testing.T) {
	var sawAuth []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuth = append(sawAuth, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/auth/login":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			assert.Equal(t, "a@example.com", body["email"])
			_, _ = w.Write([]byte(`{"message":"Login successful","token":"tok-1","user":{"id":"u1","email":"a@example.com","role":"user"}}`))
		case "/user/profile":
			_, _ = w.Write([]byte(`{"id":"u1","email":"a@example.com","firstName":"Ann"}`))
		case "/auth/logout":
			_, _ = w.Write([]byte(`{"message":"Logged out"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	res, err := c.Login(context.Background(), "a@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", res.Token)
	assert.Equal(t, "tok-1", c.Token())

	u, err := c.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.FirstName)

	require.NoError(t, c.Logout(context.Background()))
	assert.Empty(t, c.Token())
	assert.Equal(t, []string{"", "Bearer tok-1", "Bearer tok-1"}, sawAuth)
}

func TestClient_NonSuccessIsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Validation failed","errors":{"email":"is already registered"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Register(context.Background(), RegisterRequest{Email: "a@example.com"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Validation failed", apiErr.Message)
	assert.Equal(t, "is already registered", apiErr.Fields["email"])
	assert.Contains(t, string(apiErr.Payload), "errors")
	assert.Empty(t, c.Token())
}

func TestClient_ListUsersQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"users":[{"id":"u6"}],"total":6,"page":2,"limit":5}`))
	}))
	defer srv.Close()

	page, err := New(srv.URL, WithToken("admin")).ListUsers(context.Background(), 2, 5)
	require.NoError(t, err)
	assert.Equal(t, 6, page.Total)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "u6", page.Users[0].ID)
}

func TestClient_NonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := New(srv.URL).DeleteUser(context.Background(), "x")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Empty(t, apiErr.Message)
	assert.Equal(t, "api error: status 502", apiErr.Error())
}
