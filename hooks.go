package canoncbor

// Hooks lightweight callbacks for high-signal codec events.
// Implementations MUST be cheap and non-blocking.
// They are called on decode/encode hot paths.
type Hooks interface {
	// Input was refused by the decoder.
	// kind is an ErrorKind name; limit is a Limit name ("none" unless kind is
	// resource_limit_exceeded); size is the input length.
	DecodeRejected(kind, limit string, size int)

	// Input decoded fine but was not in canonical form.
	NonCanonicalInput(size, canonicalSize int)

	// Encoding was refused by an output ceiling.
	EncodeRejected(size, max int)

	// A stored block no longer matched its content address and was dropped.
	BlockCorrupt(id string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) DecodeRejected(string, string, int) {}
func (NopHooks) NonCanonicalInput(int, int)         {}
func (NopHooks) EncodeRejected(int, int)            {}
func (NopHooks) BlockCorrupt(string)                {}
