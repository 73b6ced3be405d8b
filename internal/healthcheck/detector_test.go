package healthcheck

import (
	"encoding/hex"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polaris-contrib/polaris-go-core/internal/config"
	"github.com/polaris-contrib/polaris-go-core/internal/model"
)

func TestTcpDetectorOkOnMatchingEcho(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 2)
		n, _ := conn.Read(buf)
		_, _ = conn.Write(buf[:n])
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg, err := config.Parse([]byte(`
send: "cafe"
receive: "cafe"
timeout: 500ms
`))
	require.NoError(t, err)

	d := NewTcpDetector()
	require.NoError(t, d.Init(cfg, nil))

	result := d.DetectInstanceOnce(model.Instance{Host: host, Port: port})
	assert.Equal(t, model.ReturnOk, result.ReturnCode)
}

func TestTcpDetectorServerErrorOnMismatch(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 2)
		n, _ := conn.Read(buf)
		_ = n
		_, _ = conn.Write([]byte{0x00, 0x00})
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg, err := config.Parse([]byte(`
send: "cafe"
receive: "babe"
timeout: 500ms
`))
	require.NoError(t, err)

	d := NewTcpDetector()
	require.NoError(t, d.Init(cfg, nil))

	result := d.DetectInstanceOnce(model.Instance{Host: host, Port: port})
	assert.Equal(t, model.ReturnServerError, result.ReturnCode)
}

func TestTcpDetectorInvalidConfigOnBadHex(t *testing.T) {
	cfg, err := config.Parse([]byte(`send: "not-hex"`))
	require.NoError(t, err)

	d := NewTcpDetector()
	err = d.Init(cfg, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}

func TestHexDecodeRoundTrip(t *testing.T) {
	b, err := hex.DecodeString("cafe")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xca, 0xfe}, b)
}

func TestHttpDetectorHealthyStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg, err := config.Parse([]byte(`
path: /healthz
healthyCodes: "200,204"
timeout: 500ms
`))
	require.NoError(t, err)

	d := NewHttpDetector()
	require.NoError(t, d.Init(cfg, nil))

	result := d.DetectInstanceOnce(model.Instance{Host: host, Port: port})
	assert.Equal(t, model.ReturnOk, result.ReturnCode)
}

func TestHttpDetectorUnhealthyStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	cfg, err := config.Parse([]byte(`healthyCodes: "200"`))
	require.NoError(t, err)

	d := NewHttpDetector()
	require.NoError(t, d.Init(cfg, nil))

	result := d.DetectInstanceOnce(model.Instance{Host: host, Port: port})
	assert.Equal(t, model.ReturnServerError, result.ReturnCode)
}
