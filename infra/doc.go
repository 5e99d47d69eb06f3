// Package infra groups the adapters around the simulation core: MQTT
// notifications, metrics sinks, the dispatch journal, scenario files and
// error reporting. Adapters depend on core interfaces, never the reverse.
package infra
