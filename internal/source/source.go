// Package source reads company datasets from XLSX, CSV, and JSON files,
// locally or over HTTP and FTP, into raw rows plus a column schema.
package source

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bizmap/internal/model"
)

// Fetcher downloads a remote dataset.
type Fetcher interface {
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Versioner reports a version marker (such as an ETag) for a remote dataset.
type Versioner interface {
	HeadETag(ctx context.Context, url string) (string, error)
}

// FileVersioner reports a size and modification marker for a remote file.
// An empty marker means the server has none.
type FileVersioner interface {
	Version(ctx context.Context, url string) (string, error)
}

// Format is a supported dataset file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Table is a decoded dataset: every row as text plus the columns present.
type Table struct {
	Rows   []model.RawRow
	Schema model.Schema
}

// Options configures a Reader.
type Options struct {
	SheetName  string // XLSX sheet; overrides SheetIndex
	SheetIndex int
	TempDir    string // where remote datasets are staged; default os.TempDir()
}

// Reader resolves dataset locations and decodes them.
type Reader struct {
	http Fetcher
	ftp  Fetcher
	opts Options
}

// NewReader creates a Reader. Either fetcher may be nil, in which case
// locations with that scheme are rejected.
func NewReader(httpFetcher, ftpFetcher Fetcher, opts Options) *Reader {
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	return &Reader{http: httpFetcher, ftp: ftpFetcher, opts: opts}
}

// DetectFormat infers the format from the location's file extension.
func DetectFormat(location string) (Format, error) {
	p := location
	if u, err := url.Parse(location); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".xlsx":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", eris.Errorf("source: unsupported dataset format %q", location)
	}
}

// scheme returns "http", "ftp", or "" for local paths. Single-letter
// schemes are Windows drive letters.
func scheme(location string) string {
	u, err := url.Parse(location)
	if err != nil || len(u.Scheme) <= 1 {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return "http"
	case "ftp":
		return "ftp"
	case "file":
		return "file"
	default:
		return u.Scheme
	}
}

// Identity returns a cache key for the dataset's current version.
// Local files are versioned by size and modification time, HTTP datasets
// by ETag, and FTP datasets by SIZE and MDTM where the server answers them.
func (r *Reader) Identity(ctx context.Context, location string) (string, error) {
	switch s := scheme(location); s {
	case "", "file":
		p := localPath(location)
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", eris.Wrap(err, "source: resolve path")
		}
		info, err := os.Stat(abs)
		if err != nil {
			return "", eris.Wrap(err, "source: stat dataset")
		}
		return fmt.Sprintf("%s@%d-%d", abs, info.Size(), info.ModTime().UnixNano()), nil
	case "http":
		if v, ok := r.http.(Versioner); ok {
			etag, err := v.HeadETag(ctx, location)
			if err != nil {
				return "", eris.Wrap(err, "source: head dataset")
			}
			if etag != "" {
				return location + "@" + etag, nil
			}
		}
		return location, nil
	case "ftp":
		if v, ok := r.ftp.(FileVersioner); ok {
			marker, err := v.Version(ctx, location)
			if err != nil {
				return "", eris.Wrap(err, "source: stat remote dataset")
			}
			if marker != "" {
				return location + "@" + marker, nil
			}
		}
		return location, nil
	default:
		return "", eris.Errorf("source: unsupported scheme %q", s)
	}
}

// Read loads and decodes the dataset at location.
func (r *Reader) Read(ctx context.Context, location string) (*Table, error) {
	format, err := DetectFormat(location)
	if err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("component", "source.reader"), zap.String("location", location))

	p := localPath(location)
	switch s := scheme(location); s {
	case "", "file":
	case "http", "ftp":
		f := r.http
		if s == "ftp" {
			f = r.ftp
		}
		if f == nil {
			return nil, eris.Errorf("source: no %s fetcher configured", s)
		}
		staged, err := r.stage(ctx, f, location, format)
		if err != nil {
			return nil, err
		}
		defer os.Remove(staged) //nolint:errcheck
		p = staged
	default:
		return nil, eris.Errorf("source: unsupported scheme %q", s)
	}

	log.Debug("decoding dataset", zap.String("format", string(format)))

	var t *Table
	switch format {
	case FormatXLSX:
		t, err = ReadXLSX(p, XLSXOptions{SheetName: r.opts.SheetName, SheetIndex: r.opts.SheetIndex})
	case FormatCSV:
		t, err = readFile(p, DecodeCSV)
	case FormatJSON:
		t, err = readFile(p, DecodeJSON)
	}
	if err != nil {
		return nil, err
	}

	log.Info("dataset decoded",
		zap.Int("rows", len(t.Rows)),
		zap.Int("columns", len(t.Schema)),
	)
	return t, nil
}

// stage downloads a remote dataset into a temp file and returns its path.
func (r *Reader) stage(ctx context.Context, f Fetcher, location string, format Format) (string, error) {
	body, err := f.Download(ctx, location)
	if err != nil {
		return "", eris.Wrap(err, "source: download dataset")
	}
	defer body.Close() //nolint:errcheck

	tmp, err := os.CreateTemp(r.opts.TempDir, "dataset-*."+string(format))
	if err != nil {
		return "", eris.Wrap(err, "source: create temp file")
	}
	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", eris.Wrap(err, "source: write temp file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", eris.Wrap(err, "source: close temp file")
	}
	return tmp.Name(), nil
}

func readFile(p string, decode func(io.Reader) (*Table, error)) (*Table, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, eris.Wrap(err, "source: open dataset")
	}
	defer f.Close() //nolint:errcheck
	return decode(f)
}

func localPath(location string) string {
	if strings.HasPrefix(location, "file://") {
		return strings.TrimPrefix(location, "file://")
	}
	return location
}
