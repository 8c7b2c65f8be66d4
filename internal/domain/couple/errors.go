package couple

import "errors"

var (
	ErrSelfBind         = errors.New("cannot bind with yourself")
	ErrUserNotFound     = errors.New("user not found")
	ErrAlreadyPaired    = errors.New("an active couple already exists")
	ErrRequestNotFound  = errors.New("bind request not found")
	ErrNotRequestTarget = errors.New("you are not the target of this request")
	ErrNoActiveCouple   = errors.New("no active couple")
)
