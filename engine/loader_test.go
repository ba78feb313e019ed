package engine

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromSource(t *testing.T) {
	req := require.New(t)

	engine, err := FromSource(`{"name": "m", "root": {"id": "f1", "name": "m"}}`)()
	req.NoError(err)
	req.NotNil(engine)

	_, err = FromSource(`broken`)()
	req.Error(err)
}

func TestFromURL(t *testing.T) {
	req := require.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name": "remote", "root": {"id": "f1", "name": "remote"}}`))
	}))
	defer server.Close()

	engine, err := FromURL(server.URL)()
	req.NoError(err)

	data, err := engine.Export("json")
	req.NoError(err)
	req.Contains(string(data), "remote")
}

func TestFromURL_NonOK(t *testing.T) {
	req := require.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := FromURL(server.URL)()
	req.Error(err)
}
