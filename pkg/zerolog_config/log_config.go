package zerolog_config

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.elastic.co/ecszerolog"
)

var (
	appPrefix         string
	setAppPrefixOnce  sync.Once
	startupLoggerOnce sync.Once
)

// ElasticsearchWriter posts each JSON log line to an Elasticsearch index
type ElasticsearchWriter struct {
	URL    string
	Client *http.Client
}

func (ew ElasticsearchWriter) Write(p []byte) (n int, err error) {
	client := ew.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Post(ew.URL+"/_doc", "application/json", bytes.NewReader(p))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("elasticsearch returned %d", resp.StatusCode)
	}
	return len(p), nil
}

// ParseLevel maps a level name onto a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return parsed
}

// newLogger builds the global logger: pretty console output, plus ECS JSON
// shipped to Elasticsearch when a URL is given
func newLogger(console io.Writer, elasticsearchURL, index string) zerolog.Logger {
	consoleWriter := zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339}

	if elasticsearchURL == "" {
		return zerolog.New(consoleWriter).With().Str("app", appPrefix).Timestamp().Logger()
	}

	ecsLogger := ecszerolog.New(&ElasticsearchWriter{
		URL:    strings.TrimRight(elasticsearchURL, "/") + "/" + index,
		Client: &http.Client{Timeout: 5 * time.Second},
	})
	multi := zerolog.MultiLevelWriter(ecsLogger, consoleWriter)

	return zerolog.New(multi).With().Str("app", appPrefix).Timestamp().Logger()
}

// SetAppPrefix sets the app field stamped on every log line. Only the
// first call has an effect.
func SetAppPrefix(name string) {
	setAppPrefixOnce.Do(func() {
		appPrefix = name
	})
}

// StartupWithEnv installs the global logger. Run SetAppPrefix first.
// Only the first call has an effect.
func StartupWithEnv(elasticsearchURL, index, level string) error {
	if index == "" {
		return fmt.Errorf("index is required")
	}
	startupLoggerOnce.Do(func() {
		zerolog.SetGlobalLevel(ParseLevel(level))
		log.Logger = newLogger(os.Stdout, elasticsearchURL, index)
	})
	return nil
}
