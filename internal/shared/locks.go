package shared

import "fmt"

// NumberLockKey builds the advisory lock key guarding document number issue.
func NumberLockKey(prefix string, year int) string {
	return fmt.Sprintf("docnumber:%s:%d", prefix, year)
}
