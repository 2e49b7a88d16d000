package password

import "fmt"

// Format names a stored-hash encoding.
type Format string

const (
	FormatUnknown  Format = ""
	FormatArgon2id Format = "argon2id"
	FormatBcrypt   Format = "bcrypt"
)

// FormatOf classifies a stored hash by its prefix.
func FormatOf(hash string) Format {
	switch {
	case IsArgon2Hash(hash):
		return FormatArgon2id
	case IsBcryptHash(hash):
		return FormatBcrypt
	default:
		return FormatUnknown
	}
}

// Hasher is implemented by Argon2 and Bcrypt.
type Hasher interface {
	Format() Format
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
	NeedsUpgrade(hash string) (bool, error)
}

func (*Argon2) Format() Format { return FormatArgon2id }

func (*Bcrypt) Format() Format { return FormatBcrypt }

// Multi hashes new passwords with its primary hasher and verifies any stored
// format it holds a hasher for. A user table migrated from a bcrypt service
// keeps working after the primary moves to Argon2id.
type Multi struct {
	primary  Hasher
	byFormat map[Format]Hasher
}

// NewMulti returns a Multi. Later hashers never replace an earlier one for
// the same format, so primary always wins.
func NewMulti(primary Hasher, others ...Hasher) *Multi {
	m := &Multi{primary: primary, byFormat: make(map[Format]Hasher, 1+len(others))}
	for _, h := range append([]Hasher{primary}, others...) {
		if h == nil {
			continue
		}
		if _, ok := m.byFormat[h.Format()]; !ok {
			m.byFormat[h.Format()] = h
		}
	}
	return m
}

func (m *Multi) Format() Format { return m.primary.Format() }

func (m *Multi) Hash(password string) (string, error) {
	return m.primary.Hash(password)
}

// Verify dispatches on the stored hash format.
func (m *Multi) Verify(password, hash string) (bool, error) {
	h, err := m.hasherFor(hash)
	if err != nil {
		return false, err
	}
	return h.Verify(password, hash)
}

// NeedsUpgrade is true for any hash not in the primary format, and
// otherwise defers to the primary.
func (m *Multi) NeedsUpgrade(hash string) (bool, error) {
	if _, err := m.hasherFor(hash); err != nil {
		return false, err
	}
	if FormatOf(hash) != m.primary.Format() {
		return true, nil
	}
	return m.primary.NeedsUpgrade(hash)
}

func (m *Multi) hasherFor(hash string) (Hasher, error) {
	f := FormatOf(hash)
	h, ok := m.byFormat[f]
	if !ok {
		if f == FormatUnknown {
			return nil, fmt.Errorf("%w: unrecognized format", ErrMalformedHash)
		}
		return nil, fmt.Errorf("%w: no %s hasher configured", ErrMalformedHash, f)
	}
	return h, nil
}
