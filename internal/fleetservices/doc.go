// Package fleetservices provides concrete Service, Factory, ListenerFactory,
// and Layer implementations that exercise internal/fleet's contracts: an
// echo service, a TCP-forwarding proxy with pooled upstream connections,
// TCP/Unix/systemd listener factories, and delay/timeout/route layers.
//
// None of this is a production codec stack — gatewayfleet's core scope
// stops at the worker fleet and service lifecycle. These
// types exist to give that core something real to deploy, stage, and
// layer, and to carry the end-to-end scenarios in internal/fleet's tests.
package fleetservices
