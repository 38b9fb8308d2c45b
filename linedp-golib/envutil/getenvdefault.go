package envutil

import (
	"os"
)

// GetenvDefault returns the value of the named environment variable, or
// defaultValue if the variable is unset.
func GetenvDefault(name, defaultValue string) string {
	val, found := os.LookupEnv(name)
	if !found {
		return defaultValue
	}
	return val
}
