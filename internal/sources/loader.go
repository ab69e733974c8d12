package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/wonny/africa-covid/backend/pkg/logger"
)

// Fetcher downloads a remote document (implemented by pkg/httputil.Client)
type Fetcher interface {
	GetBody(ctx context.Context, url string) ([]byte, error)
}

// Loader turns a source location into a Table.
// http(s) locations go through the Fetcher, anything else is read from disk.
// .html/.htm locations are parsed as an HTML table, everything else as CSV.
type Loader struct {
	fetcher      Fetcher
	logger       *logger.Logger
	htmlSelector string

	// local reads; the fetcher retries remote ones itself
	readFile     func(name string) ([]byte, error)
	maxRetries   int
	initialDelay time.Duration
	maxDelay     time.Duration
}

// NewLoader creates a loader
func NewLoader(fetcher Fetcher, log *logger.Logger) *Loader {
	return &Loader{
		fetcher:      fetcher,
		logger:       log.Module("sources"),
		htmlSelector: "table",
		readFile:     os.ReadFile,
	}
}

// WithRetry retries failed local file reads with exponential backoff.
// Missing files and permission errors are not retried.
func (l *Loader) WithRetry(maxRetries int, initialDelay, maxDelay time.Duration) *Loader {
	l.maxRetries = maxRetries
	l.initialDelay = initialDelay
	l.maxDelay = maxDelay
	return l
}

// WithHTMLSelector sets the CSS selector of the table read from HTML sources
func (l *Loader) WithHTMLSelector(selector string) *Loader {
	l.htmlSelector = selector
	return l
}

// IsRemote reports whether a location is fetched over HTTP
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// Load reads one source
func (l *Loader) Load(ctx context.Context, name, location string) (*Table, error) {
	if location == "" {
		return nil, fmt.Errorf("load %s: empty location", name)
	}

	data, err := l.read(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	var table *Table
	if isHTML(location) {
		table, err = ParseHTMLTable(name, bytes.NewReader(data), l.htmlSelector)
	} else {
		table, err = ParseCSV(name, bytes.NewReader(data))
	}
	if err != nil {
		return nil, err
	}

	l.logger.WithFields(map[string]interface{}{
		"source":  name,
		"rows":    table.Len(),
		"columns": len(table.Header),
	}).Debug("Source loaded")

	return table, nil
}

func (l *Loader) read(ctx context.Context, location string) ([]byte, error) {
	if IsRemote(location) {
		if l.fetcher == nil {
			return nil, fmt.Errorf("no fetcher configured for %s", location)
		}
		return l.fetcher.GetBody(ctx, location)
	}

	if l.maxRetries <= 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return l.readFile(location)
	}

	expBackoff := backoff.NewExponentialBackOff()
	if l.initialDelay > 0 {
		expBackoff.InitialInterval = l.initialDelay
	}
	if l.maxDelay > 0 {
		expBackoff.MaxInterval = l.maxDelay
	}

	attempt := 0
	return backoff.Retry(ctx, func() ([]byte, error) {
		attempt++
		data, err := l.readFile(location)
		if err == nil {
			return data, nil
		}
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	},
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(uint(l.maxRetries+1)),
		backoff.WithNotify(func(err error, delay time.Duration) {
			l.logger.WithFields(map[string]interface{}{
				"attempt":  attempt,
				"delay":    delay,
				"location": location,
				"error":    err.Error(),
			}).Warn("Retrying file read")
		}),
	)
}

func isHTML(location string) bool {
	if i := strings.IndexAny(location, "?#"); i >= 0 {
		location = location[:i]
	}
	ext := strings.ToLower(filepath.Ext(location))
	return ext == ".html" || ext == ".htm"
}
