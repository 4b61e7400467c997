package config

// FleetConfig is the top-level YAML document gatewayfleet loads at startup
// and re-loads on every config change.
type FleetConfig struct {
	Runtime RuntimeSection `yaml:"runtime"`
	Sites   []SiteConfig   `yaml:"sites"`
}

// RuntimeSection configures the FleetOrchestrator's worker pool.
type RuntimeSection struct {
	WorkerThreads int  `yaml:"workerThreads"`
	CPUAffinity   bool `yaml:"cpuAffinity"`
}

// SiteConfig declares one site: its listener and the service deployed
// behind it.
type SiteConfig struct {
	Name     string         `yaml:"name"`
	Listener ListenerConfig `yaml:"listener"`
	Service  ServiceConfig  `yaml:"service"`
}

// ListenerConfig names the listener kind and its address. Kind is one of
// "tcp", "unix", or "systemd"; Address holds the dial string for "tcp",
// Path the socket path for "unix", and SystemdName (optional) names the
// activation socket for "systemd".
type ListenerConfig struct {
	Kind        string `yaml:"kind"`
	Address     string `yaml:"address,omitempty"`
	Path        string `yaml:"path,omitempty"`
	SystemdName string `yaml:"systemdName,omitempty"`
}

// ServiceConfig names the service kind and its kind-specific fields. Kind
// is one of "echo" (using BufferBytes) or "tcpProxy" (using Upstream and
// PoolSize). Upstream is rendered through the sprig template funcs before
// YAML unmarshalling, so it may contain {{ env "X" }}-style references.
type ServiceConfig struct {
	Kind        string `yaml:"kind"`
	BufferBytes int    `yaml:"bufferBytes,omitempty"`
	Upstream    string `yaml:"upstream,omitempty"`
	PoolSize    int    `yaml:"poolSize,omitempty"`
}
