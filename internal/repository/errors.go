package repository

import (
	"errors"
	"fmt"

	"github.com/noah-isme/smart-attendance/pkg/database"
)

// ErrDuplicate is returned when a write collides with a uniqueness constraint.
var ErrDuplicate = errors.New("duplicate record")

func translateWriteErr(op string, err error) error {
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

