package jwt

import (
	"errors"
	"testing"
	"time"
)

func newTestIssuer(t *testing.T, clock *testClock) *Issuer {
	t.Helper()
	iss, err := NewIssuer(IssuerConfig{
		AccessSecret:  secret('a'),
		RefreshSecret: secret('r'),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Now:           clock.Now,
	})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	return iss
}

func TestIssuerPairUsesIndependentSecretsAndTTLs(t *testing.T) {
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	iss := newTestIssuer(t, clock)

	pair, err := iss.IssuePair(Claim{ID: "u1", Email: "a@x.com"})
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	access, err := iss.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	refresh, err := iss.VerifyRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("verify refresh: %v", err)
	}

	if got := access.Expiry().Sub(clock.now); got != 15*time.Minute {
		t.Fatalf("access ttl = %v", got)
	}
	if got := refresh.Expiry().Sub(clock.now); got != 7*24*time.Hour {
		t.Fatalf("refresh ttl = %v", got)
	}

	if _, err := iss.VerifyAccess(pair.RefreshToken); err == nil {
		t.Fatal("refresh token must not verify as access token")
	}
	if _, err := iss.VerifyRefresh(pair.AccessToken); err == nil {
		t.Fatal("access token must not verify as refresh token")
	}
}

func TestIssuerAccessTokensUniqueWithinSameInstant(t *testing.T) {
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	iss := newTestIssuer(t, clock)
	claim := Claim{ID: "u1", Email: "a@x.com"}

	seen := make(map[string]struct{}, 64)
	for i := 0; i < 64; i++ {
		token, err := iss.IssueAccessToken(claim)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		if _, dup := seen[token]; dup {
			t.Fatalf("duplicate access token at iteration %d", i)
		}
		seen[token] = struct{}{}
	}
}

func TestNewIssuerRejectsEqualSecrets(t *testing.T) {
	_, err := NewIssuer(IssuerConfig{
		AccessSecret:  secret('a'),
		RefreshSecret: secret('a'),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	if !errors.Is(err, ErrSecretsEqual) {
		t.Fatalf("expected ErrSecretsEqual, got %v", err)
	}
}

func TestNewIssuerRejectsInvertedTTLs(t *testing.T) {
	_, err := NewIssuer(IssuerConfig{
		AccessSecret:  secret('a'),
		RefreshSecret: secret('r'),
		AccessTTL:     time.Hour,
		RefreshTTL:    time.Minute,
	})
	if err == nil {
		t.Fatal("expected refresh TTL shorter than access TTL to be rejected")
	}
}

func TestIssuerAccessLeewayMatchesVerifier(t *testing.T) {
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	iss, err := NewIssuer(IssuerConfig{
		AccessSecret:  secret('a'),
		RefreshSecret: secret('r'),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		Leeway:        20 * time.Second,
		Now:           clock.Now,
	})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	if got := iss.AccessLeeway(); got != 20*time.Second {
		t.Fatalf("access leeway = %v", got)
	}

	token, err := iss.IssueAccessToken(Claim{ID: "u1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	clock.Advance(time.Minute + iss.AccessLeeway() - time.Second)
	if _, err := iss.VerifyAccess(token); err != nil {
		t.Fatalf("verify inside leeway: %v", err)
	}
	clock.Advance(time.Second)
	if _, err := iss.VerifyAccess(token); !errors.Is(err, ErrExpired) {
		t.Fatalf("verify at exp+leeway: %v", err)
	}
}
