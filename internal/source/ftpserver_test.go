package source

import (
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type ftpTestFile struct {
	body  string
	mtime time.Time
}

// localFTP is an in-process FTP server covering the commands the fetcher
// sends: login, FEAT, TYPE, OPTS, EPSV, SIZE, MDTM, RETR and QUIT.
type localFTP struct {
	ln       net.Listener
	user     string // empty accepts any login
	password string
	noStat   bool // reject SIZE and hide MDTM

	mu     sync.Mutex
	files  map[string]ftpTestFile
	logins []string
	wg     sync.WaitGroup
}

func newLocalFTP(t *testing.T, files map[string]ftpTestFile, opts ...func(*localFTP)) *localFTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &localFTP{ln: ln, files: files}
	for _, o := range opts {
		o(s)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.wg.Add(1)
			go s.handle(conn)
		}
	}()

	t.Cleanup(func() {
		_ = ln.Close()
		s.wg.Wait()
	})
	return s
}

func withFTPLogin(user, password string) func(*localFTP) {
	return func(s *localFTP) {
		s.user = user
		s.password = password
	}
}

func (s *localFTP) url(path string) string {
	return "ftp://" + s.ln.Addr().String() + path
}

func (s *localFTP) urlAs(user, password, path string) string {
	return "ftp://" + user + ":" + password + "@" + s.ln.Addr().String() + path
}

func (s *localFTP) setFile(path string, f ftpTestFile) {
	s.mu.Lock()
	s.files[path] = f
	s.mu.Unlock()
}

func (s *localFTP) file(path string) (ftpTestFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[path]
	return f, ok
}

// seenLogins returns every USER/PASS pair received, as "user:password".
func (s *localFTP) seenLogins() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.logins...)
}

func (s *localFTP) handle(nc net.Conn) {
	defer s.wg.Done()
	defer nc.Close() //nolint:errcheck
	_ = nc.SetDeadline(time.Now().Add(10 * time.Second))

	c := textproto.NewConn(nc)
	reply := func(format string, args ...any) { _ = c.PrintfLine(format, args...) }

	reply("220 bizmap test server")

	var user string
	var data net.Listener
	defer func() {
		if data != nil {
			_ = data.Close()
		}
	}()

	for {
		line, err := c.ReadLine()
		if err != nil {
			return
		}
		verb, arg, _ := strings.Cut(line, " ")

		switch strings.ToUpper(verb) {
		case "USER":
			user = arg
			reply("331 Password required for %s", arg)
		case "PASS":
			s.mu.Lock()
			s.logins = append(s.logins, user+":"+arg)
			s.mu.Unlock()
			if s.user != "" && (user != s.user || arg != s.password) {
				reply("530 Login incorrect")
				continue
			}
			reply("230 Logged in")
		case "FEAT":
			reply("211-Extensions supported:")
			reply(" UTF8")
			if !s.noStat {
				reply(" SIZE")
				reply(" MDTM")
			}
			reply("211 End")
		case "TYPE", "OPTS":
			reply("200 OK")
		case "EPSV":
			if data != nil {
				_ = data.Close()
			}
			data, err = net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				reply("425 Cannot open data connection")
				continue
			}
			reply("229 Entering Extended Passive Mode (|||%d|)", data.Addr().(*net.TCPAddr).Port)
		case "SIZE":
			f, ok := s.file(arg)
			if s.noStat || !ok {
				reply("550 Could not get file size")
				continue
			}
			reply("213 %s", strconv.Itoa(len(f.body)))
		case "MDTM":
			f, ok := s.file(arg)
			if s.noStat || !ok {
				reply("550 Could not get modification time")
				continue
			}
			reply("213 %s", f.mtime.UTC().Format("20060102150405"))
		case "RETR":
			s.retrieve(reply, data, arg)
			if data != nil {
				_ = data.Close()
				data = nil
			}
		case "QUIT":
			reply("221 Goodbye")
			return
		default:
			reply("502 %s not implemented", verb)
		}
	}
}

func (s *localFTP) retrieve(reply func(string, ...any), data net.Listener, path string) {
	if data == nil {
		reply("425 Use EPSV first")
		return
	}
	dc, err := data.Accept()
	if err != nil {
		reply("425 Cannot open data connection")
		return
	}
	defer dc.Close() //nolint:errcheck

	f, ok := s.file(path)
	if !ok {
		reply("550 %s: No such file", path)
		return
	}
	reply("150 Opening data connection for %s", path)
	_, _ = dc.Write([]byte(f.body))
	_ = dc.Close()
	reply("226 Transfer complete")
}
