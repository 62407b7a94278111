package git

import "fmt"

// MemChangelist is an in-memory Changelist that remembers the order in which paths were first changed. Writing a
// path again replaces its content but keeps its original position
type MemChangelist struct {
	order    []string
	modified map[string]string
	deleted  map[string]struct{}
}

func NewMemChangelist() *MemChangelist {
	return &MemChangelist{
		modified: map[string]string{},
		deleted:  map[string]struct{}{},
	}
}

// Write records new content for path, cancelling any earlier deletion of it
func (mc *MemChangelist) Write(path string, content string) {
	mc.touch(path)
	delete(mc.deleted, path)
	mc.modified[path] = content
}

// Delete records the deletion of path, discarding any earlier write to it
func (mc *MemChangelist) Delete(path string) {
	mc.touch(path)
	delete(mc.modified, path)
	mc.deleted[path] = struct{}{}
}

func (mc *MemChangelist) touch(path string) {
	if _, ok := mc.modified[path]; ok {
		return
	}
	if _, ok := mc.deleted[path]; ok {
		return
	}
	mc.order = append(mc.order, path)
}

func (mc *MemChangelist) ForEachModified(fn func(path string, content string) error) error {
	for _, path := range mc.order {
		content, ok := mc.modified[path]
		if !ok {
			continue
		}
		if err := fn(path, content); err != nil {
			return fmt.Errorf("error while handling modified file '%s': %w", path, err)
		}
	}
	return nil
}

func (mc *MemChangelist) ForEachDeleted(fn func(path string) error) error {
	for _, path := range mc.order {
		if _, ok := mc.deleted[path]; !ok {
			continue
		}
		if err := fn(path); err != nil {
			return fmt.Errorf("error while handling deleted file '%s': %w", path, err)
		}
	}
	return nil
}

func (mc *MemChangelist) IsModified(path string) bool {
	_, ok := mc.modified[path]
	return ok
}

func (mc *MemChangelist) IsDeleted(path string) bool {
	_, ok := mc.deleted[path]
	return ok
}

func (mc *MemChangelist) IsEmpty() bool {
	return len(mc.modified) == 0 && len(mc.deleted) == 0
}

// Paths returns every changed path in order
func (mc *MemChangelist) Paths() []string {
	var paths []string
	for _, path := range mc.order {
		if mc.IsModified(path) || mc.IsDeleted(path) {
			paths = append(paths, path)
		}
	}
	return paths
}
