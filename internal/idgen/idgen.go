// Package idgen mints the short ids stamped on merge reports and archived
// snapshots.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes by artifact.
const (
	ReportPrefix   = "mr-"
	SnapshotPrefix = "ss-"
)

// Alphabet defines the character set used for the random portion of the ID.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 10

// ReportID returns a new merge report id.
func ReportID() (string, error) {
	return GenerateWithPrefix(ReportPrefix)
}

// SnapshotID returns a new archive snapshot id.
func SnapshotID() (string, error) {
	return GenerateWithPrefix(SnapshotPrefix)
}

// GenerateWithPrefix returns a new unique ID with the given prefix.
func GenerateWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
