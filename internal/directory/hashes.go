package directory

import (
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf16"

	"golang.org/x/crypto/md4" //nolint:staticcheck // sambaNTPassword is MD4 by definition
)

const sshaSaltLen = 4

// HashSSHA computes the salted SHA-1 form stored in userPassword.
// The directory does not hash incoming values itself, so the encoding
// is applied client-side before transmission: SHA-1 over
// password||salt with a random 4-byte salt, then base64 of hash||salt,
// prefixed with the {SSHA} scheme marker.
func HashSSHA(password string) string {
	salt := make([]byte, sshaSaltLen)
	if _, err := rand.Read(salt); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hashSSHAWithSalt(password, salt)
}

func hashSSHAWithSalt(password string, salt []byte) string {
	h := sha1.New()
	h.Write([]byte(password))
	h.Write(salt)
	digest := h.Sum(nil)

	return "{SSHA}" + base64.StdEncoding.EncodeToString(append(digest, salt...))
}

// CompareSSHA verifies a plaintext against a stored {SSHA} value.
func CompareSSHA(password, stored string) (bool, error) {
	encoded, ok := strings.CutPrefix(stored, "{SSHA}")
	if !ok {
		return false, fmt.Errorf("value is not an SSHA hash")
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return false, fmt.Errorf("invalid SSHA encoding: %w", err)
	}

	if len(raw) != sha1.Size+sshaSaltLen {
		return false, fmt.Errorf("invalid SSHA length: %d", len(raw))
	}

	salt := raw[sha1.Size:]
	recomputed := hashSSHAWithSalt(password, salt)
	return subtle.ConstantTimeCompare([]byte(recomputed), []byte(stored)) == 1, nil
}

// HashNT computes the hash stored in sambaNTPassword: MD4 over the
// UTF-16LE encoding of the plaintext, uppercase hex.
func HashNT(password string) string {
	codes := utf16.Encode([]rune(password))
	buf := make([]byte, len(codes)*2)
	for i, c := range codes {
		binary.LittleEndian.PutUint16(buf[i*2:], c)
	}

	h := md4.New()
	h.Write(buf)
	return fmt.Sprintf("%X", h.Sum(nil))
}
