package ports

// Listener is a network front end of the daemon
type Listener interface {
	// Start begins serving in the background
	Start() error

	// Stop shuts the listener down
	Stop() error
}
