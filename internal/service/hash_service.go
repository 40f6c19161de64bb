package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argonParams are the Argon2id cost parameters. The zero value is never
// used; defaultArgonParams seeds new hashes and Verify reads the params
// back out of the encoded hash, so old hashes stay verifiable if the
// defaults ever change.
type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
	saltLen uint32
	keyLen  uint32
}

var defaultArgonParams = argonParams{
	memory:  64 * 1024, // KiB
	time:    1,
	threads: 4,
	saltLen: 16,
	keyLen:  32,
}

// Argon2HashService implements ports.HashService using Argon2id in the
// standard PHC string format.
type Argon2HashService struct {
	params argonParams
}

// NewArgon2HashService creates a hash service with the default cost parameters.
func NewArgon2HashService() *Argon2HashService {
	return &Argon2HashService{params: defaultArgonParams}
}

// Hash derives an Argon2id hash of password with a fresh random salt.
// Output: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
func (s *Argon2HashService) Hash(password string) (string, error) {
	salt := make([]byte, s.params.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, s.params.time, s.params.memory, s.params.threads, s.params.keyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		s.params.memory, s.params.time, s.params.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encodedHash. The comparison is
// constant time.
func (s *Argon2HashService) Verify(password string, encodedHash string) (bool, error) {
	salt, want, params, err := parsePHCHash(encodedHash)
	if err != nil {
		return false, err
	}

	got := argon2.IDKey([]byte(password), salt, params.time, params.memory, params.threads, params.keyLen)

	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

// parsePHCHash splits a $argon2id$v=..$m=..,t=..,p=..$salt$hash string into
// its salt, derived key, and cost parameters.
func parsePHCHash(encodedHash string) (salt, key []byte, params argonParams, err error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return nil, nil, params, fmt.Errorf("malformed password hash: %d segments", len(parts))
	}
	if parts[1] != "argon2id" {
		return nil, nil, params, fmt.Errorf("unsupported hash algorithm %q", parts[1])
	}

	var version int
	if _, err = fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, params, fmt.Errorf("parsing hash version: %w", err)
	}
	if version != argon2.Version {
		return nil, nil, params, fmt.Errorf("incompatible argon2 version %d", version)
	}

	if _, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.memory, &params.time, &params.threads); err != nil {
		return nil, nil, params, fmt.Errorf("parsing hash params: %w", err)
	}

	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, nil, params, fmt.Errorf("decoding salt: %w", err)
	}
	if key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, nil, params, fmt.Errorf("decoding hash: %w", err)
	}
	params.keyLen = uint32(len(key))

	return salt, key, params, nil
}
