package xmlrpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const versionResponse = "<methodResponse><params><param><value><string>0.9.8</string></value></param></params></methodResponse>"

func testConfig(t *testing.T, srv *httptest.Server) Config {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return Config{Host: host, Port: port, Path: "/RPC2", Logger: logger}
}

func TestCallBeforeConnect(t *testing.T) {
	c := NewClient(Config{Host: "127.0.0.1", Port: 1, Path: "/RPC2", Logger: logrus.New()})
	_, err := c.Call(context.Background(), "d.multicall2")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.False(t, c.Connected())
}

func TestConnectAndCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/RPC2", r.URL.Path)
		assert.Equal(t, "text/xml", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		if strings.Contains(string(body), probeMethod) {
			fmt.Fprint(w, versionResponse)
			return
		}
		assert.Contains(t, string(body), "<methodName>d.name</methodName>")
		fmt.Fprint(w, "<methodResponse><params><param><value><string>ubuntu.iso</string></value></param></params></methodResponse>")
	}))
	defer srv.Close()

	c := NewClient(testConfig(t, srv))
	require.NoError(t, c.Connect(context.Background()))
	assert.True(t, c.Connected())

	got, err := c.Call(context.Background(), "d.name", "ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, "ubuntu.iso", got)

	require.NoError(t, c.Close())
	assert.False(t, c.Connected())
}

func TestConnectSendsBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, versionResponse)
	}))
	defer srv.Close()

	cfg := testConfig(t, srv)

	unauthorized := NewClient(cfg)
	assert.Error(t, unauthorized.Connect(context.Background()))

	cfg.Username = "admin"
	cfg.Password = "hunter2"
	authorized := NewClient(cfg)
	assert.NoError(t, authorized.Connect(context.Background()))
}

func TestCallReturnsFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if strings.Contains(string(body), probeMethod) {
			fmt.Fprint(w, versionResponse)
			return
		}
		fmt.Fprint(w, `<methodResponse><fault><value><struct>
			<member><name>faultCode</name><value><i4>-501</i4></value></member>
			<member><name>faultString</name><value><string>Could not find info-hash.</string></value></member>
		</struct></value></fault></methodResponse>`)
	}))
	defer srv.Close()

	c := NewClient(testConfig(t, srv))
	require.NoError(t, c.Connect(context.Background()))

	_, err := c.Call(context.Background(), "d.stop", "DEADBEEF")
	var fault *Fault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, -501, fault.Code)
}

func TestConnectFailsOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(testConfig(t, srv))
	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.False(t, c.Connected())
}
