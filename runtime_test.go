package polaris

import (
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polaris-contrib/polaris-go-core/internal/config"
	"github.com/polaris-contrib/polaris-go-core/internal/model"
)

func TestRuntimeRegisterLookupService(t *testing.T) {
	rt, err := NewRuntime(nil)
	require.NoError(t, err)
	defer func() {
		rt.Reactor().Stop()
		_ = rt.Close()
	}()

	instances := []model.Instance{{ID: "i1", Host: "127.0.0.1", Port: 8080}}
	rt.RegisterService("svc", instances, []model.StrategyConfig{{
		Name:                      "errorCount",
		ContinuousErrorThreshold:  3,
		RequestCountAfterHalfOpen: 5,
		SuccessCountAfterHalfOpen: 3,
		HalfOpenSleepWindowMs:     1000,
		MetricExpiredTimeMs:       60000,
	}})

	data, ok := rt.LookupService("svc")
	require.True(t, ok)
	defer data.Release()
	assert.Equal(t, "svc", data.Service)
	assert.Len(t, data.Instances, 1)
}

func TestRuntimeReportCallUnregisteredServiceErrors(t *testing.T) {
	rt, err := NewRuntime(nil)
	require.NoError(t, err)
	defer func() {
		rt.Reactor().Stop()
		_ = rt.Close()
	}()

	err = rt.ReportCall("missing", "i1", model.ReportError)
	assert.ErrorIs(t, err, model.ErrNotInitialized)
}

func TestRuntimeStartHealthCheckRunsOnce(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close() // closes immediately: detector should see NetworkFailed or an empty read
		}
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	rt, err := NewRuntime(nil)
	require.NoError(t, err)
	defer func() {
		rt.Reactor().Stop()
		_ = rt.Close()
	}()

	rt.RegisterService("svc", []model.Instance{{ID: "i1", Host: host, Port: port}}, []model.StrategyConfig{{
		Name:                      "errorCount",
		ContinuousErrorThreshold:  1,
		RequestCountAfterHalfOpen: 5,
		SuccessCountAfterHalfOpen: 3,
		HalfOpenSleepWindowMs:     1000,
		MetricExpiredTimeMs:       60000,
	}})

	cfg, err := config.Parse([]byte(`timeout: 200ms`))
	require.NoError(t, err)
	require.NoError(t, rt.StartHealthCheck("svc", cfg, "tcp", 1))

	require.NoError(t, rt.Reactor().RunOnce())
}
