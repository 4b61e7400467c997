// Package fleet implements the worker fleet and service-lifecycle core of
// the gateway: a thread-per-core set of workers, each holding a table of
// named sites, each site pairing one listener with one deployed Service.
//
// The orchestrator fans directives out to every worker; each worker applies
// its own directives strictly in arrival order and never observes another
// worker's state. A Service placed in a site's slot is never mutated after
// publication — updates replace the slot's contents, and in-flight
// connections keep the reference they already captured until they finish.
package fleet
