package storage

// Backend defines the contract for all snippet persistence mechanisms.
type Backend interface {
	// Load retrieves the stored document.
	// It MUST return (nil, nil) if nothing has been stored yet.
	Load() (*Document, error)

	// Save atomically persists the entire document.
	Save(doc *Document) error

	// Close performs any necessary cleanup of backend resources, such as releasing file locks.
	Close() error
}
