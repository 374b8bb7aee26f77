package port

import "errors"

// ErrNotFound возвращается хранилищами, если запись отсутствует.
var ErrNotFound = errors.New("not found")
