package source

import (
	"context"
	"errors"
	"io"
	"net"
	"net/textproto"
	"net/url"
	"strconv"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	ftpDefaultPort     = "21"
	ftpAnonymousUser   = "anonymous"
	ftpAnonymousSecret = "anonymous@"
)

// FTPOptions configures the FTP fetcher.
type FTPOptions struct {
	Timeout time.Duration
}

// FTPFetcher downloads datasets over FTP. Credentials come from the URL's
// userinfo; without them the fetcher logs in anonymously. Every call opens
// its own control connection.
type FTPFetcher struct {
	opts FTPOptions
}

// NewFTPFetcher creates a new FTPFetcher with the given options.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &FTPFetcher{opts: opts}
}

// ftpTarget is a parsed ftp:// dataset location.
type ftpTarget struct {
	host     string
	path     string
	user     string
	password string
}

func parseFTPURL(rawURL string) (ftpTarget, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ftpTarget{}, eris.Wrap(err, "parse ftp url")
	}
	if u.Scheme != "ftp" {
		return ftpTarget{}, eris.Errorf("expected ftp scheme, got %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		return ftpTarget{}, eris.New("empty path in ftp url")
	}

	t := ftpTarget{host: u.Host, path: u.Path, user: ftpAnonymousUser, password: ftpAnonymousSecret}
	if u.Port() == "" {
		t.host = net.JoinHostPort(u.Hostname(), ftpDefaultPort)
	}
	if u.User != nil && u.User.Username() != "" {
		t.user = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			t.password = pw
		}
	}
	return t, nil
}

// session dials the server and logs in. The caller owns the connection.
func (f *FTPFetcher) session(ctx context.Context, t ftpTarget) (*ftp.ServerConn, error) {
	log := zap.L().With(zap.String("component", "source.ftp"), zap.String("host", t.host))

	conn, err := ftp.Dial(t.host, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrapf(err, "source: ftp dial %s", t.host)
	}
	if err := conn.Login(t.user, t.password); err != nil {
		_ = conn.Quit()
		return nil, eris.Wrapf(err, "source: ftp login as %s", t.user)
	}
	log.Debug("ftp session open", zap.String("user", t.user))
	return conn, nil
}

// ftpBody streams a retrieved file and ends the session on Close.
type ftpBody struct {
	*ftp.Response
	conn *ftp.ServerConn
}

func (b *ftpBody) Close() error {
	respErr := b.Response.Close()
	quitErr := b.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "source: ftp close transfer")
	}
	if quitErr != nil {
		return eris.Wrap(quitErr, "source: ftp quit")
	}
	return nil
}

// Download retrieves the file at ftpURL. Closing the returned body ends
// the FTP session.
func (f *FTPFetcher) Download(ctx context.Context, ftpURL string) (io.ReadCloser, error) {
	t, err := parseFTPURL(ftpURL)
	if err != nil {
		return nil, err
	}

	conn, err := f.session(ctx, t)
	if err != nil {
		return nil, err
	}

	resp, err := conn.Retr(t.path)
	if err != nil {
		_ = conn.Quit()
		return nil, eris.Wrapf(err, "source: ftp retrieve %s", t.path)
	}
	return &ftpBody{Response: resp, conn: conn}, nil
}

// Version reports "<size>-<mtime>" for the file at ftpURL using SIZE and
// MDTM. A part the server rejects is left out; an empty string means the
// server offers no version marker at all.
func (f *FTPFetcher) Version(ctx context.Context, ftpURL string) (string, error) {
	t, err := parseFTPURL(ftpURL)
	if err != nil {
		return "", err
	}

	conn, err := f.session(ctx, t)
	if err != nil {
		return "", err
	}
	defer conn.Quit() //nolint:errcheck

	var size, mtime string
	n, err := conn.FileSize(t.path)
	switch {
	case err == nil:
		size = strconv.FormatInt(n, 10)
	case !isFTPReply(err):
		return "", eris.Wrapf(err, "source: ftp size %s", t.path)
	}
	if conn.IsGetTimeSupported() {
		ts, err := conn.GetTime(t.path)
		switch {
		case err == nil:
			mtime = ts.UTC().Format("20060102150405")
		case !isFTPReply(err):
			return "", eris.Wrapf(err, "source: ftp mdtm %s", t.path)
		}
	}

	if size == "" && mtime == "" {
		return "", nil
	}
	return size + "-" + mtime, nil
}

// isFTPReply reports whether err is a negative server reply rather than a
// transport failure.
func isFTPReply(err error) bool {
	var reply *textproto.Error
	return errors.As(err, &reply)
}
