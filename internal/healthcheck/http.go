package healthcheck

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/polaris-contrib/polaris-go-core/internal/config"
	"github.com/polaris-contrib/polaris-go-core/internal/model"
	"github.com/polaris-contrib/polaris-go-core/internal/plugin"
)

// HttpDetector issues a configured HTTP request and treats the configured
// status codes as healthy. Its config shape follows the TCP/UDP
// detectors' Init pattern, built with net/http rather than a raw socket,
// since an HTTP client is ordinary status-line/header parsing that
// net/http already does correctly.
type HttpDetector struct {
	client       *http.Client
	path         string
	method       string
	healthyCodes map[int]struct{}
}

func NewHttpDetector() *HttpDetector { return &HttpDetector{} }

func (d *HttpDetector) Name() string { return string(DetectHTTP) }

func (d *HttpDetector) Init(cfg *config.Config, _ *plugin.Context) error {
	d.path = cfg.GetStringOrDefault("path", "/")
	d.method = cfg.GetStringOrDefault("method", http.MethodGet)
	timeout := cfg.GetDurationOrDefault("timeout", 250*time.Millisecond)
	d.client = &http.Client{Timeout: timeout}

	codesCsv := cfg.GetStringOrDefault("healthyCodes", "200")
	d.healthyCodes = make(map[int]struct{})
	for _, part := range strings.Split(codesCsv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, err := strconv.Atoi(part)
		if err != nil {
			return model.AsError(model.ErrInvalidConfig, "healthcheck: http healthyCodes must be a comma-separated integer list")
		}
		d.healthyCodes[code] = struct{}{}
	}
	return nil
}

func (d *HttpDetector) DetectInstanceOnce(instance model.Instance) Result {
	start := nowMsFunc()
	result := Result{DetectType: DetectHTTP}

	url := fmt.Sprintf("http://%s%s", instance.Endpoint(), d.path)
	req, err := http.NewRequest(d.method, url, nil)
	if err != nil {
		result.ReturnCode = model.ReturnInvalidConfig
		result.ElapseMs = nowMsFunc() - start
		return result
	}

	resp, err := d.client.Do(req)
	result.ElapseMs = nowMsFunc() - start
	if err != nil {
		result.ReturnCode = model.ReturnNetworkFailed
		return result
	}
	defer resp.Body.Close()

	if _, healthy := d.healthyCodes[resp.StatusCode]; !healthy {
		result.ReturnCode = model.ReturnServerError
		return result
	}
	result.ReturnCode = model.ReturnOk
	return result
}
