package core

import "fmt"

// Capability flags mirroring the standard database-client API convention.
const (
	// APILevel is the supported client API level.
	APILevel = "2.0"
	// ThreadSafety: threads may share the module, but not connections.
	ThreadSafety = 1
	// ParamStyle is the supported parameter style: WHERE name=:name.
	ParamStyle = "named"
)

// Date formats a date value as YYYY-MM-DD.
func Date(year, month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// Time formats a time value as HH:MM:SS.
func Time(hour, minute, second int) string {
	return fmt.Sprintf("%02d:%02d:%02d", hour, minute, second)
}

// Timestamp formats a combined date and time value.
func Timestamp(year, month, day, hour, minute, second int) string {
	return fmt.Sprintf("%s %s", Date(year, month, day), Time(hour, minute, second))
}

// Binary passes binary values through unchanged.
func Binary(b []byte) []byte {
	return b
}
