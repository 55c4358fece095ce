package domain

type ConnectionStatus string

const (
	Connecting   ConnectionStatus = "connecting"
	Connected    ConnectionStatus = "connected"
	Disconnected ConnectionStatus = "disconnected"
	// ConnectionError is terminal for the current connection attempt.
	ConnectionError ConnectionStatus = "error"
)

func (s ConnectionStatus) String() string { return string(s) }
