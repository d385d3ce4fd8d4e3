/*
Package errors provides semantic error types for entitysync.

The package separates outcomes a caller must handle differently:

	var (
	    ErrNotFound       = errors.New("entity not found")
	    ErrInvalidInput   = errors.New("invalid input")
	    ErrNotImplemented = errors.New("not implemented")
	    ErrConfig         = errors.New("invalid configuration")
	    ErrIdentifier     = errors.New("identifier assignment failed")
	    ErrNotify         = errors.New("change notification failed")
	    ErrNoIndexMap     = errors.New("no index map found for type")
	)

Configuration errors are returned once, by the service constructor. Not
implemented errors mean a backend or notifier lacks a capability (bulk result
parsing, full table count, identifier assignment); they are never returned for
"nothing matched", which is an empty result and a nil error.

Usage:

	_, err := users.InsertIfAbsent(ctx, batch)
	if errors.IsNotImplemented(err) {
	    // the backend cannot tell which rows were new
	}

	if errors.IsNotify(err) {
	    // the write landed, the synchronous notification did not
	}

Every type implements Is so wrapped errors keep matching their sentinel.
*/
package errors
