// Package inference talks to the model gateway: it discovers the replicas
// the gateway hosts and runs chat completions against them.
package inference
