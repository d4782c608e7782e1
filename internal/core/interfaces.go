// Package core defines the core interfaces for the NAO bridge.
package core

// Speaker is the single backend capability the bridge forwards to:
// synchronous speech synthesis on the robot. The payload is UTF-8 text.
//
// Implementations are not required to be safe for concurrent use; callers
// own the serialization of calls.
type Speaker interface {
	Say(text []byte) error
}
