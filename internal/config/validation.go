package config

import "fmt"

var validListenerKinds = map[string]bool{"tcp": true, "unix": true, "systemd": true}
var validServiceKinds = map[string]bool{"echo": true, "tcpProxy": true}

// Validate checks a FleetConfig for internal consistency beyond what YAML
// unmarshalling already guarantees: required fields, known listener/service
// kinds, unique site names, and the parameters each service kind requires.
// It collects every problem found rather than stopping at the first.
func Validate(cfg FleetConfig) error {
	var errs LoadErrors

	if cfg.Runtime.WorkerThreads < 0 {
		errs.add("runtime", "<config>", "workerThreads must not be negative",
			"set runtime.workerThreads to 0 to default to runtime.NumCPU(), or a positive integer")
	}

	if len(cfg.Sites) == 0 {
		errs.add("sites", "<config>", "at least one site must be configured")
	}

	seen := make(map[string]bool, len(cfg.Sites))
	for _, site := range cfg.Sites {
		validateSite(site, seen, &errs)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateSite(site SiteConfig, seen map[string]bool, errs *LoadErrors) {
	if site.Name == "" {
		errs.add("sites", "<config>", "site name must not be empty")
		return
	}
	if seen[site.Name] {
		errs.add("sites", site.Name, "duplicate site name")
	}
	seen[site.Name] = true

	validateListener(site.Name, site.Listener, errs)
	validateService(site.Name, site.Service, errs)
}

func validateListener(site string, l ListenerConfig, errs *LoadErrors) {
	if !validListenerKinds[l.Kind] {
		errs.add("listener", site, fmt.Sprintf("unknown listener kind %q", l.Kind),
			"use one of: tcp, unix, systemd")
		return
	}
	switch l.Kind {
	case "tcp":
		if l.Address == "" {
			errs.add("listener", site, "tcp listener requires a non-empty address")
		}
	case "unix":
		if l.Path == "" {
			errs.add("listener", site, "unix listener requires a non-empty path")
		}
	}
}

func validateService(site string, s ServiceConfig, errs *LoadErrors) {
	if !validServiceKinds[s.Kind] {
		errs.add("service", site, fmt.Sprintf("unknown service kind %q", s.Kind),
			"use one of: echo, tcpProxy")
		return
	}
	if s.Kind == "tcpProxy" && s.Upstream == "" {
		errs.add("service", site, "tcpProxy service requires an upstream address",
			"add upstream: \"host:port\" to this site's service block")
	}
}
