package deploy

import "time"

// Descriptor is the unit of information needed to start one application
// instance: which version to run, on which port, and where its request
// handler lives inside the artifact directory.
//
// The JSON field names are the wire and ledger layout: the version travels as
// "hash" because upload clients compute it from the artifact contents.
type Descriptor struct {
	// Version is the opaque, globally unique identifier of one artifact
	// upload. It doubles as the artifact directory name.
	Version string `json:"hash"`

	// Port is the TCP port the instance serves traffic on.
	Port int `json:"port"`

	// Entrypoint is the path, relative to the artifact directory, of the
	// executable the instance is started from.
	Entrypoint string `json:"entrypoint"`

	// Timestamp records when the deployment was performed.
	Timestamp time.Time `json:"timestamp"`
}

// Clone returns a copy of the descriptor.
func (d *Descriptor) Clone() *Descriptor {
	if d == nil {
		return nil
	}
	clone := *d
	return &clone
}
