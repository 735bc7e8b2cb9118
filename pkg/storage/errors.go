package storage

type storageError string

const (
	ErrNotFound = storageError("not found")
	// ErrUnknownSession is returned when readings reference a session that
	// does not exist.
	ErrUnknownSession = storageError("unknown session")
)

func (e storageError) Error() string {
	return string(e)
}
