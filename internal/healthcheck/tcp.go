package healthcheck

import (
	"bytes"
	"encoding/hex"
	"time"

	"github.com/polaris-contrib/polaris-go-core/internal/config"
	"github.com/polaris-contrib/polaris-go-core/internal/model"
	"github.com/polaris-contrib/polaris-go-core/internal/netutil"
	"github.com/polaris-contrib/polaris-go-core/internal/plugin"
)

// TcpDetector hex-decodes `send`/`receive` from config, connects,
// optionally sends, and optionally compares the response.
type TcpDetector struct {
	send    []byte
	receive []byte
	timeout time.Duration
}

func NewTcpDetector() *TcpDetector { return &TcpDetector{} }

func (d *TcpDetector) Name() string { return string(DetectTCP) }

// Init hex-decodes the `send`/`receive` config keys, returning
// model.ErrInvalidConfig on decode failure.
func (d *TcpDetector) Init(cfg *config.Config, _ *plugin.Context) error {
	sendHex := cfg.GetStringOrDefault("send", "")
	recvHex := cfg.GetStringOrDefault("receive", "")
	d.timeout = cfg.GetDurationOrDefault("timeout", 250*time.Millisecond)

	if sendHex != "" {
		decoded, err := hex.DecodeString(sendHex)
		if err != nil {
			return model.AsError(model.ErrInvalidConfig, "healthcheck: tcp send payload hex decode failed")
		}
		d.send = decoded
	}
	if recvHex != "" {
		decoded, err := hex.DecodeString(recvHex)
		if err != nil {
			return model.AsError(model.ErrInvalidConfig, "healthcheck: tcp receive payload hex decode failed")
		}
		d.receive = decoded
	}
	return nil
}

// DetectInstanceOnce opens a TCP connection, optionally sends d.send, and
// if d.receive is configured, reads and compares bytes.
func (d *TcpDetector) DetectInstanceOnce(instance model.Instance) Result {
	start := nowMsFunc()
	result := Result{DetectType: DetectTCP}

	respBuf := make([]byte, len(d.receive))
	if len(respBuf) == 0 {
		respBuf = make([]byte, 1)
	}

	recv, err := netutil.TcpSendRecv(instance.Host, instance.Port, d.timeout, d.send, respBuf)
	result.ElapseMs = nowMsFunc() - start
	if err != nil {
		result.ReturnCode = model.ReturnNetworkFailed
		return result
	}
	if len(d.receive) > 0 && !bytes.Equal(recv.Response, d.receive) {
		result.ReturnCode = model.ReturnServerError
		return result
	}
	result.ReturnCode = model.ReturnOk
	return result
}
