package cnst

import "errors"

var (
	// ErrNotFound is returned when an update or delete targets an id that
	// does not exist in the collection
	ErrNotFound = errors.New("record not found")
	// ErrUnknownCollection is returned when a collection name is not one of
	// the known collections
	ErrUnknownCollection = errors.New("unknown collection")
	// ErrUnknownField is returned when a field name has no storage mapping
	ErrUnknownField = errors.New("unknown field name")
	// ErrUnknownFlow is returned when an import names a flow that is neither
	// the info sheet nor the work list sheet
	ErrUnknownFlow = errors.New("unknown import flow")
	// ErrNotReceiver is returned when Watch is called on a send-only notifier
	ErrNotReceiver = errors.New("notifier is not a receiver")
	// ErrNotSender is returned when NotifyUpdate is called on a receive-only notifier
	ErrNotSender = errors.New("notifier is not a sender")
)
