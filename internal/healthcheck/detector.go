// Package healthcheck implements the health-check engine and concrete
// detectors: an Init/DetectInstanceOnce contract with hex-encoded
// send/receive payload matching for the TCP/UDP detectors.
package healthcheck

import (
	"time"

	"github.com/polaris-contrib/polaris-go-core/internal/config"
	"github.com/polaris-contrib/polaris-go-core/internal/model"
	"github.com/polaris-contrib/polaris-go-core/internal/plugin"
)

// DetectType identifies which concrete detector produced a Result.
type DetectType string

const (
	DetectTCP  DetectType = "tcp"
	DetectUDP  DetectType = "udp"
	DetectHTTP DetectType = "http"
)

// Result is the outcome of one DetectInstanceOnce call.
type Result struct {
	DetectType DetectType
	ReturnCode model.ReturnCode
	ElapseMs   int64
}

// Detector is any component that can probe a single instance once. It
// satisfies plugin.Plugin so detectors register in internal/plugin's
// registry like any other plugin kind.
type Detector interface {
	Init(cfg *config.Config, ctx *plugin.Context) error
	Name() string
	DetectInstanceOnce(instance model.Instance) Result
}

// nowMsFunc is a variable so tests can override it; defaults to wall-clock milliseconds so
// elapse measurements reflect real probe latency even when the package's
// clock dependency (internal/clock) is running on a fake test clock for
// unrelated reasons.
var nowMsFunc = func() int64 { return time.Now().UnixMilli() }
