package event

import "errors"

var (
	ErrNoActiveCouple = errors.New("no active couple")
	ErrEventNotFound  = errors.New("event not found")
	ErrNotEventOwner  = errors.New("event does not belong to your couple")
)
