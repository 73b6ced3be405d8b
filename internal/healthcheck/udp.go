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

// UdpDetector mirrors TcpDetector's hex send/receive contract over a
// datagram socket.
type UdpDetector struct {
	send    []byte
	receive []byte
	timeout time.Duration
}

func NewUdpDetector() *UdpDetector { return &UdpDetector{} }

func (d *UdpDetector) Name() string { return string(DetectUDP) }

func (d *UdpDetector) Init(cfg *config.Config, _ *plugin.Context) error {
	sendHex := cfg.GetStringOrDefault("send", "")
	recvHex := cfg.GetStringOrDefault("receive", "")
	d.timeout = cfg.GetDurationOrDefault("timeout", 250*time.Millisecond)

	if sendHex != "" {
		decoded, err := hex.DecodeString(sendHex)
		if err != nil {
			return model.AsError(model.ErrInvalidConfig, "healthcheck: udp send payload hex decode failed")
		}
		d.send = decoded
	}
	if recvHex != "" {
		decoded, err := hex.DecodeString(recvHex)
		if err != nil {
			return model.AsError(model.ErrInvalidConfig, "healthcheck: udp receive payload hex decode failed")
		}
		d.receive = decoded
	}
	return nil
}

func (d *UdpDetector) DetectInstanceOnce(instance model.Instance) Result {
	start := nowMsFunc()
	result := Result{DetectType: DetectUDP}

	respBuf := make([]byte, len(d.receive))
	if len(respBuf) == 0 {
		respBuf = make([]byte, 1)
	}

	recv, err := netutil.UdpSendRecv(instance.Host, instance.Port, d.timeout, d.send, respBuf)
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
