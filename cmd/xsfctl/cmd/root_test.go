package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func fakeAdmin(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin/routes", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Invalid token"}`))
			return
		}
		_, _ = w.Write([]byte(`{"routes":[{"method":"GET","uri":"/hello/world/{last}/{first}","command":"helloWorld","cached":false,"authenticated":false},
			{"method":"POST","uri":"/people","command":"people","input":"domain.Person","input_key":"person","cached":false,"authenticated":true}]}`))
	})
	mux.HandleFunc("GET /admin/routes/resolve", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/people/3", r.URL.Query().Get("uri"))
		assert.Equal(t, "DELETE", r.URL.Query().Get("method"))
		_, _ = w.Write([]byte(`{"route":{"method":"DELETE","uri":"/people/{id}","command":"people"},"path_parameters":{"id":"3"}}`))
	})
	mux.HandleFunc("POST /admin/users", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice", body["username"])
		assert.Equal(t, true, body["admin"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"u-1","username":"alice","admin":true}`))
	})
	mux.HandleFunc("GET /admin/users", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"users":[{"id":"u-1","username":"alice","admin":true,"roles":["a","b"]}]}`))
	})
	mux.HandleFunc("DELETE /admin/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"Session deleted"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	output = "table"
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRoutesList(t *testing.T) {
	srv := fakeAdmin(t)

	out, err := run(t, "routes", "list", "--url", srv.URL, "--token", "tok")
	require.NoError(t, err)
	assert.Contains(t, out, "METHOD")
	assert.Contains(t, out, "helloWorld")
	assert.Contains(t, out, "person:domain.Person")

	_, err = run(t, "routes", "list", "--url", srv.URL, "--token", "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error (401): Invalid token")
}

func TestRoutesResolve(t *testing.T) {
	srv := fakeAdmin(t)

	out, err := run(t, "routes", "resolve", "--url", srv.URL, "--method", "DELETE", "--uri", "/people/3")
	require.NoError(t, err)
	assert.Contains(t, out, "Command:  people")
	assert.Contains(t, out, "id = 3")
}

func TestUserCreateAndList(t *testing.T) {
	srv := fakeAdmin(t)

	out, err := run(t, "user", "create", "--url", srv.URL, "--username", "alice", "--password", "pw", "--admin")
	require.NoError(t, err)
	assert.Contains(t, out, "User 'alice' created with ID u-1.")

	out, err = run(t, "user", "list", "--url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "a,b")
}

func TestSessionDelete(t *testing.T) {
	srv := fakeAdmin(t)

	out, err := run(t, "session", "delete", "abc", "--url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Session 'abc' deleted.")
}

func TestTokenMintAndInspect(t *testing.T) {
	out, err := run(t, "token", "mint", "--secret", "s3cret", "--subject", "u-1", "--name", "alice", "--role", "SomeRole", "--admin")
	require.NoError(t, err)
	token := strings.TrimSpace(out)
	require.NotEmpty(t, token)

	out, err = run(t, "token", "inspect", token, "--secret", "s3cret")
	require.NoError(t, err)
	assert.Contains(t, out, "Subject:  u-1")
	assert.Contains(t, out, "Admin:    true")
	assert.Contains(t, out, "Roles:    SomeRole")

	_, err = run(t, "token", "inspect", token, "--secret", "other")
	assert.Error(t, err)
}

func TestHashPassword(t *testing.T) {
	out, err := run(t, "hash-password", "correct-horse", "--cost", "4")
	require.NoError(t, err)
	hash := strings.TrimSpace(out)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("correct-horse")))
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer
	printTable(&buf, []string{"A", "LONGER"}, [][]string{{"value", "x"}})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "A      LONGER", lines[0])
	assert.Equal(t, "-      ------", lines[1])
	assert.Equal(t, "value  x", lines[2])
}
