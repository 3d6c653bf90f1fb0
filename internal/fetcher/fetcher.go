// Package fetcher downloads source files published by vessel registries.
// RFMOs publish their vessel lists as CSV or XLSX over HTTP or, for a few
// older registries, plain FTP.
package fetcher

import (
	"context"
	"io"
	"net/url"

	"github.com/rotisserie/eris"
)

// Fetcher downloads one remote source file.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to path. Returns bytes
	// written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// ForURL picks the fetcher matching the URL scheme.
func ForURL(rawURL string) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: parse url %s", rawURL)
	}
	switch u.Scheme {
	case "http", "https":
		return NewHTTPFetcher(HTTPOptions{}), nil
	case "ftp":
		return NewFTPFetcher(FTPOptions{}), nil
	default:
		return nil, eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}
}
