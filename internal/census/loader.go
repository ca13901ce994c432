package census

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/census-cli/internal/fetcher"
)

// RecordReader serves a previously imported census table from a database.
type RecordReader interface {
	LoadRecords(ctx context.Context) (Table, error)
	Close() error
}

// OpenFunc opens a RecordReader for a sqlite:// or postgres:// source URI.
type OpenFunc func(ctx context.Context, uri string) (RecordReader, error)

// Loader resolves a source URI to a census table. Supported sources:
//
//	data.csv, file:///srv/data.xlsx, extract.zip   local files
//	https://host/path/data.csv                     HTTP (retry, rate limited)
//	ftp://host/path/data.zip                       FTP
//	sqlite://census.db, postgres://…               imported tables (needs OpenDB)
type Loader struct {
	HTTP     fetcher.Fetcher
	FTP      fetcher.Fetcher
	OpenDB   OpenFunc
	Encoding string
	Timeout  time.Duration // bounds the whole load; default 30s
	TempDir  string        // scratch space for downloads and archives
}

// Load reads the source at uri. On failure it returns an empty, non-nil
// table and a *LoadError; rows with unparseable counts are never errors.
func (l *Loader) Load(ctx context.Context, uri string) (Table, error) {
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	table, err := l.load(ctx, uri)
	if err != nil {
		return Table{}, &LoadError{Source: Redact(uri), Err: err}
	}

	zap.L().Info("census: loaded extract",
		zap.String("source", Redact(uri)),
		zap.Int("records", len(table)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return table, nil
}

func (l *Loader) load(ctx context.Context, uri string) (Table, error) {
	scheme := ""
	if i := strings.Index(uri, "://"); i > 0 {
		scheme = strings.ToLower(uri[:i])
	}

	switch scheme {
	case "":
		return l.loadFile(ctx, uri)
	case "file":
		u, err := url.Parse(uri)
		if err != nil {
			return nil, eris.Wrap(err, "census: parse source url")
		}
		return l.loadFile(ctx, u.Path)
	case "http", "https":
		if l.HTTP == nil {
			return nil, eris.Errorf("census: no http fetcher configured for %s", scheme)
		}
		return l.loadRemote(ctx, l.HTTP, uri)
	case "ftp":
		if l.FTP == nil {
			return nil, eris.New("census: no ftp fetcher configured")
		}
		return l.loadRemote(ctx, l.FTP, uri)
	case "sqlite", "postgres", "postgresql":
		return l.loadDB(ctx, uri)
	default:
		return nil, eris.Errorf("census: unsupported source scheme %q", scheme)
	}
}

// loadRemote streams remote CSVs directly and stages XLSX/ZIP downloads
// in a scratch directory.
func (l *Loader) loadRemote(ctx context.Context, f fetcher.Fetcher, rawURL string) (Table, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "census: parse source url")
	}

	ext := strings.ToLower(path.Ext(u.Path))
	if ext != ".xlsx" && ext != ".zip" {
		body, err := f.Download(ctx, rawURL)
		if err != nil {
			return nil, eris.Wrap(err, "census: download")
		}
		defer body.Close() //nolint:errcheck
		return ReadCSV(ctx, body, l.Encoding)
	}

	dir, err := l.scratchDir()
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	local := filepath.Join(dir, "extract"+ext)
	n, err := f.DownloadToFile(ctx, rawURL, local)
	if err != nil {
		return nil, eris.Wrap(err, "census: download")
	}
	zap.L().Debug("census: downloaded extract", zap.String("path", local), zap.Int64("bytes", n))

	return l.loadFile(ctx, local)
}

func (l *Loader) loadFile(ctx context.Context, p string) (Table, error) {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".xlsx":
		return ReadXLSX(p)
	case ".zip":
		dir, err := l.scratchDir()
		if err != nil {
			return nil, err
		}
		defer os.RemoveAll(dir) //nolint:errcheck

		extracted, err := fetcher.ExtractFirstMatch(p, dir, ".csv", ".txt", ".xlsx")
		if err != nil {
			return nil, err
		}
		return l.loadFile(ctx, extracted)
	default:
		f, err := os.Open(p)
		if err != nil {
			return nil, eris.Wrap(err, "census: open source")
		}
		defer f.Close() //nolint:errcheck
		return ReadCSV(ctx, f, l.Encoding)
	}
}

func (l *Loader) loadDB(ctx context.Context, uri string) (Table, error) {
	if l.OpenDB == nil {
		return nil, eris.New("census: no database opener configured")
	}
	rr, err := l.OpenDB(ctx, uri)
	if err != nil {
		return nil, eris.Wrap(err, "census: open database source")
	}
	defer rr.Close() //nolint:errcheck

	return rr.LoadRecords(ctx)
}

func (l *Loader) scratchDir() (string, error) {
	if l.TempDir != "" {
		if err := os.MkdirAll(l.TempDir, 0o755); err != nil {
			return "", eris.Wrap(err, "census: create temp dir")
		}
	}
	dir, err := os.MkdirTemp(l.TempDir, "census-*")
	if err != nil {
		return "", eris.Wrap(err, "census: create scratch dir")
	}
	return dir, nil
}

// Redact drops credentials from a source URI before it is logged. A URI
// that does not parse is reduced to its scheme.
func Redact(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		if i := strings.Index(uri, "://"); i > 0 {
			return uri[:i] + "://[redacted]"
		}
		return "[redacted]"
	}
	if u.User == nil {
		return uri
	}
	return u.Redacted()
}
