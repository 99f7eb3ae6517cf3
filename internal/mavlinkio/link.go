// Package mavlinkio connects to the vehicle with gomavlib and turns decoded
// frames into telemetry sink calls.
package mavlinkio

import (
	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
	"github.com/pkg/errors"
)

type Config struct {
	// Endpoint is one of udp-client, udp-server, tcp-client, tcp-server or serial.
	Endpoint string `yaml:"endpoint"`
	Address  string `yaml:"address"`
	Device   string `yaml:"device"`
	Baud     int    `yaml:"baud"`
	// SystemID is our own MAVLink system id.
	SystemID uint8 `yaml:"system_id"`
}

func DefaultConfig() Config {
	return Config{
		Endpoint: "udp-server",
		Address:  "0.0.0.0:14550",
		Baud:     57600,
		SystemID: 255,
	}
}

func endpointConf(cfg Config) (gomavlib.EndpointConf, error) {
	switch cfg.Endpoint {
	case "udp-client":
		return gomavlib.EndpointUDPClient{Address: cfg.Address}, nil
	case "udp-server", "":
		return gomavlib.EndpointUDPServer{Address: cfg.Address}, nil
	case "tcp-client":
		return gomavlib.EndpointTCPClient{Address: cfg.Address}, nil
	case "tcp-server":
		return gomavlib.EndpointTCPServer{Address: cfg.Address}, nil
	case "serial":
		if cfg.Device == "" {
			return nil, errors.New("serial endpoint needs a device")
		}
		return gomavlib.EndpointSerial{Device: cfg.Device, Baud: cfg.Baud}, nil
	default:
		return nil, errors.Errorf("unknown endpoint %q", cfg.Endpoint)
	}
}

// Link owns the gomavlib node for its lifetime.
type Link struct {
	node *gomavlib.Node
}

func Open(cfg Config) (*Link, error) {
	endpoint, err := endpointConf(cfg)
	if err != nil {
		return nil, err
	}

	node, err := gomavlib.NewNode(gomavlib.NodeConf{
		Endpoints:   []gomavlib.EndpointConf{endpoint},
		Dialect:     common.Dialect,
		OutVersion:  gomavlib.V2,
		OutSystemID: cfg.SystemID,
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "open %s %s", cfg.Endpoint, cfg.Address)
	}
	return &Link{node: node}, nil
}

func (l *Link) WriteMessage(msg message.Message) error {
	return l.node.WriteMessageAll(msg)
}

func (l *Link) Events() chan gomavlib.Event {
	return l.node.Events()
}

func (l *Link) Close() {
	l.node.Close()
}
