package password

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// ErrMalformedHash is wrapped by every stored-hash decoding failure.
var ErrMalformedHash = errors.New("password: malformed hash")

const argon2Prefix = "$argon2id$"

// phc is a decoded Argon2id PHC string.
type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (p phc) params() string {
	return fmt.Sprintf("m=%d,t=%d,p=%d", p.memory, p.time, p.parallelism)
}

// encode renders p as $argon2id$v=19$m=..,t=..,p=..$salt$key with unpadded
// base64, the form used by the reference PHC encoders.
func (p phc) encode() string {
	return fmt.Sprintf("%sv=%d$%s$%s$%s",
		argon2Prefix,
		argon2.Version,
		p.params(),
		base64.RawStdEncoding.EncodeToString(p.salt),
		base64.RawStdEncoding.EncodeToString(p.key),
	)
}

func decodePHC(s string) (phc, error) {
	if !strings.HasPrefix(s, argon2Prefix) {
		return phc{}, fmt.Errorf("%w: not argon2id", ErrMalformedHash)
	}
	fields := strings.Split(strings.TrimPrefix(s, argon2Prefix), "$")
	if len(fields) != 4 {
		return phc{}, fmt.Errorf("%w: expected 4 sections, got %d", ErrMalformedHash, len(fields))
	}

	var version int
	if _, err := fmt.Sscanf(fields[0], "v=%d", &version); err != nil || fields[0] != fmt.Sprintf("v=%d", version) {
		return phc{}, fmt.Errorf("%w: version", ErrMalformedHash)
	}
	if version != argon2.Version {
		return phc{}, fmt.Errorf("%w: unsupported argon2 version %d", ErrMalformedHash, version)
	}

	var p phc
	if _, err := fmt.Sscanf(fields[1], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.parallelism); err != nil {
		return phc{}, fmt.Errorf("%w: parameters", ErrMalformedHash)
	}
	// Sscanf stops early on trailing input; the round trip rejects it.
	if p.params() != fields[1] {
		return phc{}, fmt.Errorf("%w: parameters", ErrMalformedHash)
	}
	if p.memory < minMemoryKB || p.time < minTimeCost || p.parallelism < minParallelism {
		return phc{}, fmt.Errorf("%w: parameters below minimum", ErrMalformedHash)
	}

	var err error
	if p.salt, err = decodeB64(fields[2]); err != nil || len(p.salt) < int(minSaltLength) {
		return phc{}, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	if p.key, err = decodeB64(fields[3]); err != nil || len(p.key) == 0 {
		return phc{}, fmt.Errorf("%w: key", ErrMalformedHash)
	}
	return p, nil
}

// decodeB64 accepts both unpadded and padded standard base64.
func decodeB64(s string) ([]byte, error) {
	if b, err := base64.RawStdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.StdEncoding.DecodeString(s)
}

// IsArgon2Hash reports whether hash looks like an Argon2id PHC string.
func IsArgon2Hash(hash string) bool {
	return strings.HasPrefix(hash, argon2Prefix)
}

// IsBcryptHash reports whether hash carries a bcrypt version prefix.
func IsBcryptHash(hash string) bool {
	return len(hash) > 4 && hash[0] == '$' && hash[1] == '2' && strings.IndexByte(hash[2:4], '$') >= 0
}
