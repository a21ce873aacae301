package postgres

import "github.com/google/uuid"

// validUUID guards UUID columns against malformed ids, which would otherwise
// fail with a cast error instead of not matching.
func validUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
