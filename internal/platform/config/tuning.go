package config

import "runtime"

// Tuning holds buffer, pool and rate-limit sizes for a load profile.
type Tuning struct {
	// Channel buffer sizes
	EventChannelBuffer     int
	BroadcastChannelBuffer int
	ClientSendBuffer       int
	CommandQueueBuffer     int

	// Connection pools
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Rate limiting
	MaxMessagesPerSecond int
	MaxClients           int
}

var profiles = map[string]func() Tuning{
	"default": DefaultTuning,
	"stress":  StressTuning,
	"low":     LowResourceTuning,
}

// Tuning returns the sizes of the configured profile.
func (c Config) Tuning() Tuning {
	if p, ok := profiles[c.Profile]; ok {
		return p()
	}
	return DefaultTuning()
}

// DefaultTuning returns sensible defaults for production.
func DefaultTuning() Tuning {
	numCPU := runtime.NumCPU()

	return Tuning{
		EventChannelBuffer:     1024, // Handle bursts
		BroadcastChannelBuffer: 256,
		ClientSendBuffer:       64,
		CommandQueueBuffer:     128,

		DBMaxOpenConns: numCPU * 4,
		DBMaxIdleConns: numCPU * 2,

		MaxMessagesPerSecond: 20,
		MaxClients:           200,
	}
}

// StressTuning returns aggressive settings for load testing.
func StressTuning() Tuning {
	numCPU := runtime.NumCPU()

	return Tuning{
		EventChannelBuffer:     4096,
		BroadcastChannelBuffer: 512,
		ClientSendBuffer:       128,
		CommandQueueBuffer:     1024,

		DBMaxOpenConns: numCPU * 8,
		DBMaxIdleConns: numCPU * 4,

		MaxMessagesPerSecond: 500,
		MaxClients:           500,
	}
}

// LowResourceTuning returns minimal settings for development.
func LowResourceTuning() Tuning {
	return Tuning{
		EventChannelBuffer:     64,
		BroadcastChannelBuffer: 16,
		ClientSendBuffer:       8,
		CommandQueueBuffer:     16,

		DBMaxOpenConns: 5,
		DBMaxIdleConns: 2,

		MaxMessagesPerSecond: 10,
		MaxClients:           20,
	}
}
