// Package control implements gatewayfleet's admin control plane: a Unix
// domain socket accepting newline-delimited JSON requests that map 1:1
// onto the six fleet directives plus a read-only Status query and a
// Reload op. It is a local introspection/administration pipe for a single
// process, analogous to a systemd notify socket, used by the
// status/console/reload CLI subcommands — never a cross-host or
// multi-process coordination surface.
package control
