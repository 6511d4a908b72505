// SPDX-License-Identifier: Apache-2.0

package result

// NoRowsError is returned by (*Rows).One when the result set is empty.
type NoRowsError struct{}

func (NoRowsError) Error() string { return "tanker: expected exactly one row, got none" }

// DuplicateKeyError is returned by (*Rows).ByKey when two rows share the
// same indexing key, which would silently drop one of them.
type DuplicateKeyError struct {
	Key string
}

func (e DuplicateKeyError) Error() string {
	return "tanker: duplicate key " + e.Key + " while indexing by key"
}
