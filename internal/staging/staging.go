// Package staging holds the ordered image attachments of a homework being
// edited, before they are committed to a record.
package staging

// Kind tags a staged image.
type Kind int

const (
	// KindExisting is an image already stored remotely; identity is its URL.
	KindExisting Kind = iota
	// KindPending is a raw file awaiting upload; identity is its position.
	KindPending
)

func (k Kind) String() string {
	switch k {
	case KindExisting:
		return "existing"
	case KindPending:
		return "pending"
	default:
		return "unknown"
	}
}

// File is a raw image held in memory until it is uploaded.
type File struct {
	Name        string
	ContentType string
	Data        []byte
	// Key optionally names the file in a preview store.
	Key string
}

// Size returns the payload length in bytes.
func (f File) Size() int { return len(f.Data) }

// Item is one staged image. URL is set for KindExisting, File for KindPending.
type Item struct {
	Kind Kind
	URL  string
	File *File
}

// Existing builds a KindExisting item.
func Existing(url string) Item { return Item{Kind: KindExisting, URL: url} }

// Pending builds a KindPending item.
func Pending(f File) Item {
	file := f
	return Item{Kind: KindPending, File: &file}
}

// List is a single ordered sequence of staged images. Existing items always
// precede pending ones, so the list order is the order Merge saves. The zero
// value is an empty list ready for use. A List is not safe for concurrent use.
type List struct {
	items []Item
}

// New returns a list seeded with the given existing image URLs.
func New(urls ...string) *List {
	l := &List{}
	l.AppendExisting(urls...)
	return l
}

// Len returns the number of staged images.
func (l *List) Len() int { return len(l.items) }

// Items returns a copy of the staged images in list order.
func (l *List) Items() []Item {
	out := make([]Item, len(l.items))
	copy(out, l.items)
	return out
}

// AppendExisting adds references to already uploaded images after the last
// existing item.
func (l *List) AppendExisting(urls ...string) {
	if len(urls) == 0 {
		return
	}
	pos := l.firstPending()
	added := make([]Item, 0, len(urls))
	for _, u := range urls {
		added = append(added, Existing(u))
	}
	tail := append(added, l.items[pos:]...)
	l.items = append(l.items[:pos], tail...)
}

func (l *List) firstPending() int {
	for i, it := range l.items {
		if it.Kind == KindPending {
			return i
		}
	}
	return len(l.items)
}

// Append appends raw files as pending items, preserving input order.
func (l *List) Append(files ...File) {
	for _, f := range files {
		l.items = append(l.items, Pending(f))
	}
}

// RemoveExisting removes the first existing item whose URL equals url.
func (l *List) RemoveExisting(url string) bool {
	for i, it := range l.items {
		if it.Kind == KindExisting && it.URL == url {
			l.removeAt(i)
			return true
		}
	}
	return false
}

// RemovePending removes the index-th pending item, counting pending items only.
func (l *List) RemovePending(index int) bool {
	if index < 0 {
		return false
	}
	n := 0
	for i, it := range l.items {
		if it.Kind != KindPending {
			continue
		}
		if n == index {
			l.removeAt(i)
			return true
		}
		n++
	}
	return false
}

func (l *List) removeAt(pos int) {
	l.items = append(l.items[:pos], l.items[pos+1:]...)
}

// Move swaps the items at from and to. Out of range positions and swaps
// between an existing and a pending item leave the list unchanged. Callers
// move one slot at a time with to = from ± 1.
func (l *List) Move(from, to int) bool {
	if from < 0 || from >= len(l.items) || to < 0 || to >= len(l.items) {
		return false
	}
	if l.items[from].Kind != l.items[to].Kind {
		return false
	}
	return Swap(l.items, from, to)
}

// Existing returns the URLs of existing items in list order.
func (l *List) Existing() []string {
	out := make([]string, 0, len(l.items))
	for _, it := range l.items {
		if it.Kind == KindExisting {
			out = append(out, it.URL)
		}
	}
	return out
}

// Pending returns the pending files in list order.
func (l *List) Pending() []File {
	out := make([]File, 0, len(l.items))
	for _, it := range l.items {
		if it.Kind == KindPending && it.File != nil {
			out = append(out, *it.File)
		}
	}
	return out
}

// Clear drops every staged item.
func (l *List) Clear() {
	l.items = nil
}

// Clone returns an independent copy of the list. File payloads are shared.
func (l *List) Clone() *List {
	if l == nil {
		return &List{}
	}
	return &List{items: l.Items()}
}

// Swap exchanges s[from] and s[to] in place. It is a no-op returning false
// when either index falls outside [0, len(s)).
func Swap[T any](s []T, from, to int) bool {
	if from < 0 || from >= len(s) || to < 0 || to >= len(s) {
		return false
	}
	s[from], s[to] = s[to], s[from]
	return true
}

// Merge builds the final image list of a record: existing URLs first, then
// the freshly uploaded ones, each in their own order.
func Merge(existing, uploaded []string) []string {
	out := make([]string, 0, len(existing)+len(uploaded))
	out = append(out, existing...)
	return append(out, uploaded...)
}
