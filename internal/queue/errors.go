package queue

import (
	"errors"
	"fmt"
)

// ErrCorrupt marks record bytes that cannot be decoded into a valid envelope.
// Match with errors.Is.
var ErrCorrupt = errors.New("corrupt queue record")

// CorruptRecordError reports that record bytes failed to decode. Path is
// empty when the bytes did not come from a file.
type CorruptRecordError struct {
	Path string
	Err  error
}

func (e *CorruptRecordError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("corrupt queue record %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("corrupt queue record: %v", e.Err)
}

func (e *CorruptRecordError) Unwrap() error { return e.Err }

func (e *CorruptRecordError) Is(target error) bool { return target == ErrCorrupt }

// UnreadableRecordError is returned by Pop and Oldest when the record they
// selected cannot be read or decoded. The file is left on disk untouched;
// the operator inspects it and either repairs it or removes it by id.
type UnreadableRecordError struct {
	ID   string
	Path string
	Err  error
}

func (e *UnreadableRecordError) Error() string {
	return fmt.Sprintf("unreadable queue record %s: %v", e.Path, e.Err)
}

func (e *UnreadableRecordError) Unwrap() error { return e.Err }
