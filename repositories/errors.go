package repositories

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/snap-point/activity-engine/apperr"
)

// IsDuplicate reports whether err is a unique-constraint violation. Drivers without error
// translation are matched on their message.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "sqlstate 23505")
}

func notFoundOr(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.New(apperr.NotFound, op, err)
	}
	return err
}
