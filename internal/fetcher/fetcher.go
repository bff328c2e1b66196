// Package fetcher opens person-record sources (local files, stdin, HTTP and
// FTP URLs) and decodes them into records.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/identity-trust/internal/config"
	"github.com/sells-group/identity-trust/internal/model"
)

// Fetcher downloads a remote source.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Format is the encoding of a record source.
type Format string

const (
	FormatJSON  Format = "json"  // one object or an array of objects
	FormatJSONL Format = "jsonl" // one object per line
	FormatCSV   Format = "csv"   // header row names the fields
	FormatXLSX  Format = "xlsx"  // first sheet, header row names the fields
)

// ParseFormat validates a user-supplied format name. An empty name yields
// an empty Format, meaning "detect from the source".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatJSON, FormatJSONL, FormatCSV, FormatXLSX:
		return f, nil
	case "ndjson":
		return FormatJSONL, nil
	default:
		return "", eris.Errorf("fetcher: unknown format %q", s)
	}
}

// DetectFormat infers a source's format from its extension, ignoring any URL
// query string. Unknown extensions and stdin default to JSON.
func DetectFormat(src string) Format {
	p := src
	if u, err := url.Parse(src); err == nil && u.Scheme != "" {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".jsonl", ".ndjson":
		return FormatJSONL
	case ".csv":
		return FormatCSV
	case ".xlsx":
		return FormatXLSX
	default:
		return FormatJSON
	}
}

// Opener resolves a source string to a reader.
type Opener struct {
	HTTP  Fetcher
	FTP   Fetcher
	Stdin io.Reader
}

// NewOpener returns an Opener whose HTTP and FTP fetchers follow cfg and
// which reads "-" from os.Stdin. Zero settings take the fetcher defaults.
func NewOpener(cfg config.FetchConfig) *Opener {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	return &Opener{
		HTTP: NewHTTPFetcher(HTTPOptions{
			BearerToken: cfg.BearerToken,
			Timeout:     timeout,
			MaxRetries:  cfg.MaxRetries,
			RatePerSec:  cfg.RatePerSec,
		}),
		FTP:   NewFTPFetcher(FTPOptions{Timeout: timeout, MaxBytes: cfg.FTPMaxBytes}),
		Stdin: os.Stdin,
	}
}

// Open returns a reader for src: "-" for stdin, an http(s) or ftp URL, or a
// local path.
func (o *Opener) Open(ctx context.Context, src string) (io.ReadCloser, error) {
	if src == "-" {
		if o.Stdin == nil {
			return nil, eris.New("fetcher: stdin is not available")
		}
		return io.NopCloser(o.Stdin), nil
	}

	if u, err := url.Parse(src); err == nil {
		switch u.Scheme {
		case "http", "https":
			if o.HTTP == nil {
				return nil, eris.New("fetcher: http fetcher is not configured")
			}
			return o.HTTP.Download(ctx, src)
		case "ftp":
			if o.FTP == nil {
				return nil, eris.New("fetcher: ftp fetcher is not configured")
			}
			return o.FTP.Download(ctx, src)
		}
	}

	f, err := os.Open(src)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", src)
	}
	return f, nil
}

// ReadRecords opens src and decodes every record in it. An empty format is
// detected from src.
func (o *Opener) ReadRecords(ctx context.Context, src string, format Format) ([]model.Record, error) {
	if format == "" {
		format = DetectFormat(src)
	}

	rc, err := o.Open(ctx, src)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck

	recs, err := DecodeRecords(ctx, rc, format)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read %s", src)
	}
	return recs, nil
}
