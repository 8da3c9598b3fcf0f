package logger

// Standard field keys for structured logging. Use these consistently across
// all log statements so the output stays queryable.
const (
	// Journal / sequencing
	KeySlot       = "slot"        // logical slot index
	KeyLamportTS  = "lamport_ts"  // lamport timestamp
	KeyNodeID     = "node_id"     // originating node
	KeyStreamID   = "stream_id"   // logical stream
	KeyHead       = "head"        // cursor head
	KeyTail       = "tail"        // cursor tail
	KeyCapacity   = "capacity"    // ring slot capacity
	KeyBlobCursor = "blob_cursor" // blob region write cursor

	// Ingest
	KeyAddr       = "addr"        // network endpoint
	KeyDepth      = "depth"       // in-flight receive depth
	KeyEvents     = "events"      // accepted event count
	KeyRejected   = "rejected"    // rejected datagram count
	KeyBytes      = "bytes"       // byte count
	KeyInstanceID = "instance_id" // writer instance UUID

	// Generic
	KeyError     = "error"    // error value
	KeyPath      = "path"     // filesystem path
	KeyDuration  = "duration" // elapsed time
	KeyComponent = "component"
)

// Err wraps an error as a key/value pair for the variadic log API.
func Err(err error) []any {
	if err == nil {
		return nil
	}
	return []any{KeyError, err.Error()}
}
