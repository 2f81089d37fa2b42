package coordinator

import (
	"encoding/json"

	"github.com/peerdesk/peerdesk/pkg/config"
	flag "github.com/spf13/pflag"
)

type Config struct {
	Coordinator Coordinator
}

type Coordinator struct {
	Debug      bool
	Origin     string
	Relay      Relay
	Monitoring config.Monitoring
	Server     config.Server
}

// Relay holds the signaling relay knobs.
// AllowUndirected toggles the legacy fallback where relay packets
// without a target are delivered to every other session participant.
// Off unless a deployment opts in for older clients.
type Relay struct {
	AllowUndirected bool
}

func NewConfig() (conf Config) {
	conf = Config{
		Coordinator: Coordinator{
			Origin: "*",
			Server: config.Server{Address: ":8000"},
			Monitoring: config.Monitoring{
				Port:      6601,
				URLPrefix: "/coordinator",
			},
		},
	}
	_ = config.LoadConfig(&conf, "")
	return
}

// ParseFlags updates the config with the set command-line flags.
func (c *Config) ParseFlags() {
	c.Coordinator.AddFlags(flag.CommandLine)
	flag.Parse()
}

func (c *Coordinator) AddFlags(fs *flag.FlagSet) *Coordinator {
	fs.BoolVar(&c.Debug, "debug", c.Debug, "Enable debug logging")
	fs.StringVar(&c.Server.Address, "address", c.Server.Address, "Coordinator server address")
	fs.StringVar(&c.Origin, "origin", c.Origin, "Allowed websocket origin, * for any")
	fs.BoolVarP(&c.Monitoring.MetricEnabled, "monitoring.metric", "m", c.Monitoring.MetricEnabled, "Enable prometheus metric for server")
	fs.BoolVarP(&c.Monitoring.ProfilingEnabled, "monitoring.pprof", "p", c.Monitoring.ProfilingEnabled, "Enable golang pprof for server")
	fs.IntVar(&c.Monitoring.Port, "monitoring.port", c.Monitoring.Port, "Monitoring server port")
	return c
}

func (c *Config) Serialize() string {
	b, _ := json.Marshal(c)
	return string(b)
}
