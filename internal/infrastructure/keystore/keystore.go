package keystore

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
)

// StaticKeyStore holds ed25519 signing keys for replicated ledger
// transactions, loaded once at startup.
type StaticKeyStore struct {
	keys         map[string]ed25519.PrivateKey
	defaultKeyID string
	perActorKeys map[string]string
}

// NewFromEnv builds a keystore from environment variables.
// SIGNING_KEYS format: "keyId:hexSeed,keyId2:hexSeed" where each seed
// is a 32-byte ed25519 seed in hex.
// SIGNING_DEFAULT_KEY_ID sets the default key id.
// SIGNING_KEY_FOR_ACTOR_<actor> can override the key per actor.
func NewFromEnv() (*StaticKeyStore, error) {
	keys := make(map[string]ed25519.PrivateKey)
	raw := os.Getenv("SIGNING_KEYS")
	if raw != "" {
		for _, p := range strings.Split(raw, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			parts := strings.SplitN(p, ":", 2)
			if len(parts) != 2 {
				return nil, errors.New("invalid SIGNING_KEYS format")
			}
			keyID := parts[0]
			seed, err := hex.DecodeString(parts[1])
			if err != nil {
				return nil, err
			}
			if len(seed) != ed25519.SeedSize {
				return nil, fmt.Errorf("key %s: seed must be %d bytes", keyID, ed25519.SeedSize)
			}
			keys[keyID] = ed25519.NewKeyFromSeed(seed)
		}
	}

	ks := &StaticKeyStore{
		keys:         keys,
		defaultKeyID: os.Getenv("SIGNING_DEFAULT_KEY_ID"),
		perActorKeys: map[string]string{},
	}

	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "SIGNING_KEY_FOR_ACTOR_") {
			parts := strings.SplitN(env, "=", 2)
			if len(parts) != 2 {
				continue
			}
			actor := strings.TrimPrefix(parts[0], "SIGNING_KEY_FOR_ACTOR_")
			if actor != "" {
				ks.perActorKeys[actor] = parts[1]
			}
		}
	}

	return ks, nil
}

func (s *StaticKeyStore) GetKey(ctx context.Context, keyID string) (ed25519.PrivateKey, error) {
	_ = ctx
	key, ok := s.keys[keyID]
	if !ok {
		return nil, errors.New("key not found")
	}
	return key, nil
}

func (s *StaticKeyStore) GetKeyForActor(ctx context.Context, actor string) (keyID string, key ed25519.PrivateKey, err error) {
	_ = ctx
	if actorKeyID, ok := s.perActorKeys[actor]; ok && actorKeyID != "" {
		key, err = s.GetKey(context.Background(), actorKeyID)
		return actorKeyID, key, err
	}
	if s.defaultKeyID == "" {
		return "", nil, errors.New("default key not configured")
	}
	key, err = s.GetKey(context.Background(), s.defaultKeyID)
	return s.defaultKeyID, key, err
}
