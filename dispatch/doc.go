// Package dispatch routes completion calls across interchangeable model
// replicas, always picking the replica with the fewest requests in flight.
package dispatch
