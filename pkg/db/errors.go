package db

import (
	"errors"

	"gorm.io/gorm"
)

// ErrDuplicate marks a unique constraint conflict.
var ErrDuplicate = errors.New("already exists")

// IsDuplicate reports whether err is a unique constraint violation. It relies
// on the connection being opened with TranslateError.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey)
}
