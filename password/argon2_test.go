package password

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

// cheapConfig keeps the tests fast while staying above the minimums.
func cheapConfig() Config {
	return Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

func newArgon(t *testing.T, cfg Config) *Argon2 {
	t.Helper()
	h, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	return h
}

func TestArgon2HashAndVerify(t *testing.T) {
	h := newArgon(t, cheapConfig())

	hash, err := h.Hash("correct-horse")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}
	if strings.HasSuffix(hash, "=") {
		t.Fatalf("expected unpadded base64 sections: %s", hash)
	}

	if ok, err := h.Verify("correct-horse", hash); err != nil || !ok {
		t.Fatalf("Verify = %v, %v", ok, err)
	}
	if ok, err := h.Verify("wrong-horse", hash); err != nil || ok {
		t.Fatalf("wrong password Verify = %v, %v", ok, err)
	}

	again, _ := h.Hash("correct-horse")
	if again == hash {
		t.Fatal("expected a fresh salt per hash")
	}
}

func TestArgon2VerifiesPaddedLegacyEncoding(t *testing.T) {
	h := newArgon(t, cheapConfig())
	hash, _ := h.Hash("correct-horse")

	p, err := decodePHC(hash)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	padded := strings.Join([]string{
		"$argon2id$v=19", p.params(),
		b64Padded(p.salt), b64Padded(p.key),
	}, "$")

	if ok, err := h.Verify("correct-horse", padded); err != nil || !ok {
		t.Fatalf("padded Verify = %v, %v", ok, err)
	}
}

func TestArgon2NeedsUpgrade(t *testing.T) {
	weak := newArgon(t, cheapConfig())
	hash, _ := weak.Hash("correct-horse")

	stronger := cheapConfig()
	stronger.Time = 2
	if up, err := newArgon(t, stronger).NeedsUpgrade(hash); err != nil || !up {
		t.Fatalf("expected upgrade for weaker time cost, got %v, %v", up, err)
	}

	longerKey := cheapConfig()
	longerKey.KeyLength = 64
	if up, _ := newArgon(t, longerKey).NeedsUpgrade(hash); !up {
		t.Fatal("expected upgrade for different key length")
	}

	if up, err := weak.NeedsUpgrade(hash); err != nil || up {
		t.Fatalf("same parameters must not need upgrade, got %v, %v", up, err)
	}
}

func TestArgon2RejectsMalformedHashes(t *testing.T) {
	h := newArgon(t, cheapConfig())
	good, _ := h.Hash("correct-horse")

	cases := map[string]string{
		"not phc":          "not-a-phc-hash",
		"bcrypt":           "$2a$04$abcdefghijklmnopqrstuv",
		"wrong version":    strings.Replace(good, "$v=19$", "$v=18$", 1),
		"extra parameter":  strings.Replace(good, "p=1$", "p=1,x=2$", 1),
		"memory too small": strings.Replace(good, "m=8192", "m=1024", 1),
		"missing section":  good[:strings.LastIndex(good, "$")],
		"bad salt":         strings.Replace(good, "p=1$", "p=1$!!", 1),
	}
	for name, hash := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := h.Verify("correct-horse", hash); !errors.Is(err, ErrMalformedHash) {
				t.Fatalf("expected ErrMalformedHash, got %v", err)
			}
		})
	}
}

func TestArgon2LengthLimits(t *testing.T) {
	cfg := cheapConfig()
	cfg.MaxPasswordBytes = 16
	h := newArgon(t, cfg)

	if _, err := h.Hash(""); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("empty: %v", err)
	}
	if _, err := h.Hash("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("short: %v", err)
	}
	if _, err := h.Hash(strings.Repeat("x", 17)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("long: %v", err)
	}
	hash, err := h.Hash(strings.Repeat("x", 16))
	if err != nil {
		t.Fatalf("at max: %v", err)
	}
	if _, err := h.Verify(strings.Repeat("x", 17), hash); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("verify long: %v", err)
	}
}

func TestArgon2DefaultMaxApplied(t *testing.T) {
	h := newArgon(t, cheapConfig())
	if h.config.MaxPasswordBytes != DefaultMaxPasswordBytes {
		t.Fatalf("max = %d", h.config.MaxPasswordBytes)
	}
}

func TestNewArgon2Validation(t *testing.T) {
	mutations := map[string]func(*Config){
		"memory":      func(c *Config) { c.Memory = 1024 },
		"time":        func(c *Config) { c.Time = 0 },
		"parallelism": func(c *Config) { c.Parallelism = 0 },
		"salt":        func(c *Config) { c.SaltLength = 8 },
		"key":         func(c *Config) { c.KeyLength = 8 },
		"max":         func(c *Config) { c.MaxPasswordBytes = -1 },
	}
	for name, mutate := range mutations {
		cfg := cheapConfig()
		mutate(&cfg)
		if _, err := NewArgon2(cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func b64Padded(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
