package directory

import "slices"

// UserEntry is a read-only snapshot of a resolved directory entry. It
// is valid only for the operation that requested it; directory state
// may change between reads.
type UserEntry struct {
	DN         string
	UID        string
	Attributes map[string][]string
}

// HasObjectClass reports whether the entry carries the given object
// class. Object class names are compared as returned by the server.
func (e *UserEntry) HasObjectClass(name string) bool {
	return slices.Contains(e.Attributes["objectClass"], name)
}

// Attribute returns the first value of the named attribute, or "".
func (e *UserEntry) Attribute(name string) string {
	values := e.Attributes[name]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
