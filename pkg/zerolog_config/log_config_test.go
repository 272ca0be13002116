package zerolog_config

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("chatty"))
}

func TestElasticsearchWriter(t *testing.T) {
	var got []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/logs/_doc", r.URL.Path)
		got, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	w := ElasticsearchWriter{URL: srv.URL + "/logs"}
	n, err := w.Write([]byte(`{"message":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	assert.JSONEq(t, `{"message":"hi"}`, string(got))
}

func TestElasticsearchWriterRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := ElasticsearchWriter{URL: srv.URL}.Write([]byte(`{}`))
	assert.ErrorContains(t, err, "400")
}

func TestNewLoggerConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "", "logs")

	logger.Info().Str("doctorid", "d1").Msg("Doctor approved")
	assert.Contains(t, buf.String(), "Doctor approved")
	assert.Contains(t, buf.String(), "d1")
}
