package netutil

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTcpSendRecvEchoesPayload(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 4)
		n, _ := conn.Read(buf)
		_, _ = conn.Write(buf[:n])
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	resp := make([]byte, 4)
	result, err := TcpSendRecv(host, port, time.Second, []byte("ping"), resp)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(result.Response))
}

func TestTcpSendRecvConnectFailure(t *testing.T) {
	_, err := TcpSendRecv("127.0.0.1", 1, 100*time.Millisecond, nil, make([]byte, 4))
	assert.Error(t, err)
}

func TestUdpSendRecvEchoesPayload(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	go func() {
		buf := make([]byte, 4)
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			return
		}
		_, _ = conn.WriteTo(buf[:n], addr)
	}()

	host, portStr, err := net.SplitHostPort(conn.LocalAddr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	resp := make([]byte, 4)
	result, err := UdpSendRecv(host, port, time.Second, []byte("ping"), resp)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(result.Response))
}
