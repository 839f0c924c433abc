package fs

import (
	"fmt"
	"strings"

	"github.com/gokrazy/ecsfs/fat"
)

// CheckError lists the inconsistencies found by Check.
type CheckError struct {
	Problems []string
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("%d problems found:\n\t%s", len(e.Problems), strings.Join(e.Problems, "\n\t"))
}

// Check verifies that every file's chain ends in EOC without cycles,
// has as many blocks as its size requires and shares no block with
// another file, and that no allocated block is unreachable.
func (fsys *FileSystem) Check() error {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	if !fsys.mounted {
		return ErrNotMounted
	}

	var problems []string
	owner := make(map[uint16]string)
	for _, e := range fsys.dir.Entries() {
		if (e.Size == 0) != (e.FirstBlock == fat.EOC) {
			problems = append(problems, fmt.Sprintf("%q: size %d with first block %#x", e.Name, e.Size, e.FirstBlock))
		}
		chain, err := fsys.fat.Chain(e.FirstBlock)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%q: %v", e.Name, err))
			continue
		}
		if got, want := len(chain), e.Blocks(); got != want {
			problems = append(problems, fmt.Sprintf("%q: %d blocks for %d bytes, want %d", e.Name, got, e.Size, want))
		}
		for _, b := range chain {
			if other, ok := owner[b]; ok {
				problems = append(problems, fmt.Sprintf("%q: block %d also belongs to %q", e.Name, b, other))
				continue
			}
			owner[b] = e.Name
		}
	}
	for i := 1; i < len(fsys.fat); i++ {
		if fsys.fat[i] == 0 {
			continue
		}
		if _, ok := owner[uint16(i)]; !ok {
			problems = append(problems, fmt.Sprintf("block %d is allocated but belongs to no file", i))
		}
	}
	if len(problems) > 0 {
		return &CheckError{Problems: problems}
	}
	return nil
}
