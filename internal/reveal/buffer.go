package reveal

// Buffer holds the full content received so far and how much of it is shown.
// Both only grow; the shown part is always a prefix of the full content.
type Buffer struct {
	full  []rune
	shown int
}

// Append adds a fragment to the full content.
func (b *Buffer) Append(fragment string) {
	b.full = append(b.full, []rune(fragment)...)
}

// Advance reveals up to n more runes and returns how many were revealed.
func (b *Buffer) Advance(n int) int {
	if n <= 0 {
		return 0
	}
	n = min(n, len(b.full)-b.shown)
	b.shown += n
	return n
}

// Snap shows everything received.
func (b *Buffer) Snap() { b.shown = len(b.full) }

func (b *Buffer) Displayed() string { return string(b.full[:b.shown]) }

func (b *Buffer) Full() string { return string(b.full) }

// Len is the full content length in runes.
func (b *Buffer) Len() int { return len(b.full) }

func (b *Buffer) CaughtUp() bool { return b.shown == len(b.full) }
