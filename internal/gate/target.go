package gate

import (
	"fmt"
	"strconv"

	"github.com/desertwitch/flatkern/internal/pipe"
	"github.com/desertwitch/flatkern/internal/storage"
)

// Target is the resolved form of a name passed to the gate, either a
// [FileTarget] or a [PipeTarget].
type Target interface {
	fmt.Stringer
	isTarget()
}

// FileTarget names a file of the flat filesystem.
type FileTarget struct {
	Name string
}

func (FileTarget) isTarget() {}

func (t FileTarget) String() string {
	return "file:" + t.Name
}

// PipeTarget names a pipe endpoint by its identifier.
type PipeTarget struct {
	ID int
}

func (PipeTarget) isTarget() {}

func (t PipeTarget) String() string {
	return "pipe:" + strconv.Itoa(t.ID)
}

// Resolve decides once whether a name addresses a pipe endpoint or a file.
// Names made only of ASCII digits with a value of at least [pipe.FirstID]
// are pipe endpoints; all other names, including short all-digit ones, are
// files.
func Resolve(name string) (Target, error) { //nolint:ireturn
	if name == "" || len(name) > storage.MaxNameLen-1 {
		return nil, fmt.Errorf("(gate-resolve) %q: %w", name, ErrInvalidName)
	}

	if !allDigits(name) {
		return FileTarget{Name: name}, nil
	}

	id, err := strconv.Atoi(name)
	if err != nil {
		// Digit strings beyond the int range can never name an endpoint.
		return PipeTarget{ID: -1}, nil //nolint:nilerr
	}

	if id >= pipe.FirstID {
		return PipeTarget{ID: id}, nil
	}

	return FileTarget{Name: name}, nil
}

func allDigits(s string) bool {
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}
