// Package metrics defines the metric kinds, names and dimensions reported by strixwire
// and fans every measurement out to the registered reporters.
package metrics

// Policy defines how multiple values for the same metric are combined.
type Policy int

const (
	Policy_None      Policy = iota // Policy_None leaves the combination to the reporter.
	Policy_Set                     // Policy_Set keeps the last reported value.
	Policy_Sum                     // Policy_Sum adds every reported value.
	Policy_Max                     // Policy_Max keeps the largest reported value.
	Policy_Stopwatch               // Policy_Stopwatch averages durations in milliseconds.
)

// Value is a metric value.
type Value float64

// Dimension holds the labels attached to one measurement.
type Dimension map[string]string

const (
	// KB is a kilobyte.
	KB = 1024.0
)

const (
	// GroupWire is the group of every metric emitted by the wire layer.
	GroupWire = "strixwire"
)

// Metric names. The comment lists the group and the dimensions each one carries.
const (
	// NamePoolCreateTotal counts objects a pool had to allocate because it was empty.
	// group:strixwire dimension:poolname
	NamePoolCreateTotal = "pool_create_total"

	// NameRegistryBuildTotal counts registry construction attempts.
	// group:strixwire dimension:result
	NameRegistryBuildTotal = "registry_build_total"

	// NameRegistryBuildMS is the time spent building and validating the registry.
	// group:strixwire
	NameRegistryBuildMS = "registry_build_ms"

	// NameRegistryTypes is the number of registered message types.
	// group:strixwire
	NameRegistryTypes = "registry_types"

	// NamePackTotal counts messages packed.
	// group:strixwire dimension:msgname,tag
	NamePackTotal = "pack_total"

	// NamePackErrTotal counts pack failures.
	// group:strixwire dimension:reason
	NamePackErrTotal = "pack_err_total"

	// NameUnpackTotal counts frames unpacked, by outcome.
	// group:strixwire dimension:status
	NameUnpackTotal = "unpack_total"

	// NamePackBytesTotal is the total size of packed frames in KB.
	// group:strixwire dimension:tag
	NamePackBytesTotal = "pack_bytes_total_KB"

	// NameFrameSizeMaxKB is the largest frame seen in KB.
	// group:strixwire dimension:direction
	NameFrameSizeMaxKB = "frame_size_max_KB"
)

// Dimension keys.
const (
	DimMsgName   = "msgname"
	DimTag       = "tag"
	DimStatus    = "status"
	DimReason    = "reason"
	DimResult    = "result"
	DimPoolName  = "poolname"
	DimDirection = "direction"
)
