package models

import "strings"

// Subject pairs a homework subject with its display colour token. The two
// always travel together; records never carry one without the other.
type Subject struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

var (
	SubjectMath    = Subject{Name: "Math", Color: "bg-orange-400"}
	SubjectEnglish = Subject{Name: "English", Color: "bg-blue-400"}
	SubjectArt     = Subject{Name: "Art", Color: "bg-green-400"}
	SubjectGeneral = Subject{Name: "General", Color: "bg-pink-400"}
)

// Subjects lists the selectable subjects in display order.
func Subjects() []Subject {
	return []Subject{SubjectMath, SubjectEnglish, SubjectArt, SubjectGeneral}
}

// DefaultSubject is preselected on new homework and used for unknown names.
func DefaultSubject() Subject {
	return SubjectMath
}

// LookupSubject finds a subject by name, ignoring case and surrounding space.
func LookupSubject(name string) (Subject, bool) {
	name = strings.TrimSpace(name)
	for _, s := range Subjects() {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Subject{}, false
}

// ResolveSubject is LookupSubject falling back to DefaultSubject.
func ResolveSubject(name string) Subject {
	if s, ok := LookupSubject(name); ok {
		return s
	}
	return DefaultSubject()
}
