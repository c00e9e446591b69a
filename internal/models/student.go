package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Instruments is a list of instrument names stored as a comma-separated
// text column.
type Instruments []string

// Value marshals the list for persistence.
func (i Instruments) Value() (driver.Value, error) {
	return strings.Join(i, ","), nil
}

// Scan parses the stored representation back into a list.
func (i *Instruments) Scan(value interface{}) error {
	if value == nil {
		*i = nil
		return nil
	}
	var raw string
	switch v := value.(type) {
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("unsupported type %T for Instruments", value)
	}
	if raw == "" {
		*i = nil
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make(Instruments, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	*i = out
	return nil
}

// StudentStatus represents the lifecycle state of a student.
type StudentStatus string

const (
	StudentStatusActive   StudentStatus = "Active"
	StudentStatusInactive StudentStatus = "Inactive"
	StudentStatusFreezed  StudentStatus = "Freezed"
)

// Valid returns true when the status is a supported value.
func (s StudentStatus) Valid() bool {
	switch s {
	case StudentStatusActive, StudentStatusInactive, StudentStatusFreezed:
		return true
	default:
		return false
	}
}

// Student represents a learner registered at the academy. Students are
// never hard-deleted; status transitions mark them inactive or frozen.
type Student struct {
	ID          string        `db:"id" json:"id"`
	Name        string        `db:"name" json:"name"`
	Email       string        `db:"email" json:"email"`
	Mobile      string        `db:"mobile" json:"mobile"`
	Instruments Instruments   `db:"instruments" json:"instruments"`
	Branch      string        `db:"branch" json:"branch"`
	Age         *int          `db:"age" json:"age,omitempty"`
	Status      StudentStatus `db:"status" json:"status"`
	JoiningDate time.Time     `db:"joining_date" json:"joining_date"`
	Country     string        `db:"country" json:"country"`
	City        string        `db:"city" json:"city"`
	Address     string        `db:"address" json:"address"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search string
	Branch string
	Status StudentStatus
}
