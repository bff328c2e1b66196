package fetcher

import (
	"context"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const anonymousFTPUser = "anonymous"

// FTPOptions configures the FTP fetcher.
type FTPOptions struct {
	Timeout  time.Duration // dial and per-command timeout, default 30s
	MaxBytes int64         // largest file accepted, 0 for no limit
}

// FTPFetcher pulls vendor drops over FTP. Credentials come from the URL's
// user info; without them it logs in anonymously.
type FTPFetcher struct {
	timeout  time.Duration
	maxBytes int64
}

// NewFTPFetcher creates an FTPFetcher.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &FTPFetcher{timeout: opts.Timeout, maxBytes: opts.MaxBytes}
}

// ftpSource is a parsed ftp:// URL.
type ftpSource struct {
	addr string // host:port
	path string
	user string
	pass string
}

func parseFTPURL(raw string) (ftpSource, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return ftpSource{}, eris.Wrap(err, "ftp: parse url")
	}
	if u.Scheme != "ftp" {
		return ftpSource{}, eris.Errorf("ftp: unsupported scheme %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		return ftpSource{}, eris.Errorf("ftp: %s names no file", u.Redacted())
	}

	src := ftpSource{addr: u.Host, path: u.Path, user: anonymousFTPUser, pass: "anonymous@"}
	if u.Port() == "" {
		src.addr = net.JoinHostPort(u.Hostname(), "21")
	}
	if name := u.User.Username(); name != "" {
		src.user = name
		src.pass, _ = u.User.Password()
	}
	return src, nil
}

// Download logs in, starts the transfer and returns the file body. Closing
// the body ends the session.
func (f *FTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	src, err := parseFTPURL(rawURL)
	if err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("addr", src.addr), zap.String("path", src.path), zap.String("user", src.user))
	log.Debug("ftp: connecting")

	conn, err := ftp.Dial(src.addr, ftp.DialWithTimeout(f.timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrapf(err, "ftp: dial %s", src.addr)
	}
	if err := conn.Login(src.user, src.pass); err != nil {
		_ = conn.Quit()
		return nil, eris.Wrapf(err, "ftp: login as %s", src.user)
	}
	resp, err := conn.Retr(src.path)
	if err != nil {
		_ = conn.Quit()
		return nil, eris.Wrapf(err, "ftp: retrieve %s", src.path)
	}

	log.Debug("ftp: transfer started")
	return &ftpBody{resp: resp, conn: conn, left: f.maxBytes, limited: f.maxBytes > 0}, nil
}

// ftpBody streams one RETR and tears down the session on Close.
type ftpBody struct {
	resp    *ftp.Response
	conn    *ftp.ServerConn
	left    int64
	limited bool
}

func (b *ftpBody) Read(p []byte) (int, error) {
	if !b.limited {
		return b.resp.Read(p)
	}
	if b.left <= 0 {
		// Probe for one more byte so a file of exactly the limit still reads.
		var one [1]byte
		if n, _ := b.resp.Read(one[:]); n > 0 {
			return 0, eris.New("ftp: file exceeds size limit")
		}
		return 0, io.EOF
	}
	if int64(len(p)) > b.left {
		p = p[:b.left]
	}
	n, err := b.resp.Read(p)
	b.left -= int64(n)
	return n, err
}

func (b *ftpBody) Close() error {
	closeErr := b.resp.Close()
	quitErr := b.conn.Quit()
	if closeErr != nil {
		return eris.Wrap(closeErr, "ftp: close transfer")
	}
	return eris.Wrap(quitErr, "ftp: quit")
}
