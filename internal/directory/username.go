package directory

import (
	"errors"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Name handling errors.
var (
	// ErrNameInvalidChar means the name contains something other than
	// letters (accented or not) and spaces.
	ErrNameInvalidChar = errors.New("name contains invalid characters")
	// ErrNameTooShort means the name has fewer than two words after
	// dropping connective particles.
	ErrNameTooShort = errors.New("name needs at least two words")
)

// maxNameWords caps how many words a parsed name keeps. Longer names
// are truncated rather than rejected.
const maxNameWords = 10

// maxUsernameLen bounds generated usernames (exclusive).
const maxUsernameLen = 20

// Name is a folded personal name: lowercase ASCII words with accents
// stripped and the particles "de", "do", "da", "dos" and "das"
// removed. Two names that differ only in case, accents or particles
// fold to the same Name, which is what both username generation and
// registration matching need.
type Name struct {
	words []string
}

// ParseName folds a raw personal name into a Name.
func ParseName(s string) (Name, error) {
	folded, err := foldName(s)
	if err != nil {
		return Name{}, err
	}

	words := make([]string, 0, maxNameWords)
	for _, w := range strings.Fields(folded) {
		switch w {
		case "de", "do", "da", "dos", "das":
			continue
		}
		words = append(words, w)
		if len(words) == maxNameWords {
			break
		}
	}

	// Username generation assumes at least one surname.
	if len(words) < 2 {
		return Name{}, ErrNameTooShort
	}
	return Name{words: words}, nil
}

// foldName decomposes accented letters and keeps only the ASCII base
// characters, lowercased. Under NFD an accented letter becomes its
// base letter plus combining marks, and a cedilla decomposes to a
// plain "c", so dropping non-ASCII runes strips the diacritics.
func foldName(s string) (string, error) {
	var b strings.Builder
	for _, r := range norm.NFD.String(s) {
		if r > 0x7f {
			continue
		}
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		if (r < 'a' || r > 'z') && r != ' ' {
			return "", ErrNameInvalidChar
		}
		b.WriteRune(r)
	}
	return b.String(), nil
}

// asciiFold strips accents from a name but keeps its casing. Used for
// attributes that must be plain ASCII yet stay human-readable.
func asciiFold(s string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(s) {
		if r <= 0x7f {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Equal reports whether two names fold to the same words.
func (n Name) Equal(other Name) bool {
	if len(n.words) != len(other.words) {
		return false
	}
	for i, w := range n.words {
		if w != other.words[i] {
			return false
		}
	}
	return true
}

func (n Name) String() string {
	return strings.Join(n.words, " ")
}

// Usernames generates every candidate username for the name, shortest
// expansions first. Each surname contributes either its initial or
// its full form; the combinations are enumerated by counting in
// binary over the surnames, with the first surname as the most
// significant position. Candidates of maxUsernameLen characters or
// more are skipped.
//
// "joao carlos pereira silva" yields joaocps, joaocpsilva,
// joaocpereiras, joaocpereirasilva, joaocarlosps, and so on.
func (n Name) Usernames() []string {
	surnames := n.words[1:]
	total := 1 << len(surnames)

	out := make([]string, 0, total)
	for mask := 0; mask < total; mask++ {
		var b strings.Builder
		b.WriteString(n.words[0])
		for i, s := range surnames {
			if mask&(1<<(len(surnames)-1-i)) != 0 {
				b.WriteString(s)
			} else {
				b.WriteString(s[:1])
			}
		}
		if b.Len() < maxUsernameLen {
			out = append(out, b.String())
		}
	}
	return out
}
