// Command probe is a minimal demonstration binary wiring a Runtime against
// one TCP health check. It takes its target address from argv[1].
package main

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	polaris "github.com/polaris-contrib/polaris-go-core"
	"github.com/polaris-contrib/polaris-go-core/internal/config"
	"github.com/polaris-contrib/polaris-go-core/internal/corelog"
	"github.com/polaris-contrib/polaris-go-core/internal/model"
)

func main() {
	address := "127.0.0.1:8081"
	if len(os.Args) >= 2 {
		address = os.Args[1]
	}

	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		fmt.Fprintf(os.Stderr, "probe: invalid address %q: %v\n", address, err)
		os.Exit(1)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "probe: invalid port in %q: %v\n", address, err)
		os.Exit(1)
	}

	logger := corelog.NewDefault(corelog.LevelInfo)
	rt, err := polaris.NewRuntime(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "probe: new runtime: %v\n", err)
		os.Exit(1)
	}

	rt.RegisterService("probe-target", []model.Instance{{ID: address, Host: host, Port: port}}, []model.StrategyConfig{{
		Name:                      "errorCount",
		ContinuousErrorThreshold:  3,
		RequestCountAfterHalfOpen: 5,
		SuccessCountAfterHalfOpen: 3,
		HalfOpenSleepWindowMs:     30000,
		MetricExpiredTimeMs:       300000,
	}})

	cfg, err := config.Parse([]byte("timeout: 250ms\n"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "probe: config: %v\n", err)
		os.Exit(1)
	}
	if err := rt.StartHealthCheck("probe-target", cfg, "tcp", 1000); err != nil {
		fmt.Fprintf(os.Stderr, "probe: start health check: %v\n", err)
		os.Exit(1)
	}
	if _, err := rt.StartBreakerSweep("probe-target", 5000); err != nil {
		fmt.Fprintf(os.Stderr, "probe: start breaker sweep: %v\n", err)
		os.Exit(1)
	}

	go func() {
		time.Sleep(5 * time.Second)
		rt.Reactor().Stop()
	}()

	if err := rt.Reactor().Run(); err != nil {
		fmt.Fprintf(os.Stderr, "probe: reactor run: %v\n", err)
		os.Exit(1)
	}
	if err := rt.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "probe: close: %v\n", err)
		os.Exit(1)
	}
}
