// Package config loads and validates gatewayfleet's FleetConfig from a YAML
// file on disk.
//
// # File format
//
// A config file declares the worker pool and the sites to deploy:
//
//	runtime:
//	  workerThreads: 4
//	  cpuAffinity: true
//
//	sites:
//	  - name: edge
//	    listener:
//	      kind: tcp
//	      address: "0.0.0.0:8080"
//	    service:
//	      kind: tcpProxy
//	      upstream: '{{ env "UPSTREAM_ADDR" }}'
//	      poolSize: 16
//
// Before being parsed as YAML, the file is rendered as a Go text/template
// with the sprig function library loaded, so values can reference
// environment variables and other sprig helpers.
//
// # Validation
//
// Load calls Validate before returning, which checks listener/service
// kinds, required per-kind parameters, and site name uniqueness, collecting
// every problem it finds into a LoadErrors rather than stopping at the
// first.
package config
