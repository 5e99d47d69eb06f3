// Package events defines the simulation and dispatch events emitted on the
// event bus.
//
// Available event types:
//   - CascadeEvent: a cascade run finished
//   - AssignmentEvent: a crew was dispatched to a failed node
//   - TransitionEvent: an assignment changed status during a tick
package events
