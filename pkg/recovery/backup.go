package recovery

import (
	"crypto/rand"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/luxfi/wamu/pkg/field"
	"github.com/luxfi/wamu/pkg/share"
	"github.com/luxfi/wamu/pkg/werror"
)

// EncryptedShareBackup is an opaque, AEAD-sealed copy of a party's
// (SigningShare, SubShare) pair, held by a peer so it can be released
// once the owning party clears a recovery challenge. Associated data
// binds the ciphertext to the owning party's verifying-key bytes, so a
// backup cannot be replayed against the wrong recovering party.
type EncryptedShareBackup struct {
	Nonce          []byte
	Ciphertext     []byte
	AssociatedData []byte
}

// Backup seals signingShare and subShareB under key (32 bytes) using
// ChaCha20-Poly1305, binding the ciphertext to associatedData (typically
// the owning party's verifying-key bytes).
func Backup(signingShare share.SigningShare, subShareB share.SubShare, key, associatedData []byte) (EncryptedShareBackup, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return EncryptedShareBackup{}, werror.Wrap(werror.Core, err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return EncryptedShareBackup{}, werror.Wrap(werror.Core, err)
	}

	plaintext := encodeShareMaterial(signingShare, subShareB)
	ciphertext := aead.Seal(nil, nonce, plaintext, associatedData)

	return EncryptedShareBackup{
		Nonce:          nonce,
		Ciphertext:     ciphertext,
		AssociatedData: associatedData,
	}, nil
}

// Open decrypts backup under key, returning the recovered signing share
// and sub-share. Decryption fails if key is wrong, the ciphertext was
// tampered with, or associatedData no longer matches what it was sealed
// with.
func Open(backup EncryptedShareBackup, key []byte) (share.SigningShare, share.SubShare, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return share.SigningShare{}, share.SubShare{}, werror.Wrap(werror.Core, err)
	}

	plaintext, err := aead.Open(nil, backup.Nonce, backup.Ciphertext, backup.AssociatedData)
	if err != nil {
		return share.SigningShare{}, share.SubShare{}, werror.New(werror.InvalidSignature)
	}

	return decodeShareMaterial(plaintext)
}

// encodeShareMaterial ‖-concatenates the signing share and sub-share
// coordinates into the fixed 96-byte layout Open expects.
func encodeShareMaterial(signingShare share.SigningShare, subShareB share.SubShare) []byte {
	b := signingShare.Bytes()
	x := subShareB.X().Bytes()
	y := subShareB.Y().Bytes()

	out := make([]byte, 0, 96)
	out = append(out, b[:]...)
	out = append(out, x[:]...)
	out = append(out, y[:]...)
	return out
}

func decodeShareMaterial(plaintext []byte) (share.SigningShare, share.SubShare, error) {
	if len(plaintext) != 96 {
		return share.SigningShare{}, share.SubShare{}, werror.New(werror.InvalidInput)
	}

	signingShare, err := share.SigningShareFromBytes(plaintext[0:32])
	if err != nil {
		return share.SigningShare{}, share.SubShare{}, err
	}

	x, err := field.FromBytes(plaintext[32:64])
	if err != nil {
		return share.SigningShare{}, share.SubShare{}, werror.New(werror.InvalidInput)
	}
	y, err := field.FromBytes(plaintext[64:96])
	if err != nil {
		return share.SigningShare{}, share.SubShare{}, werror.New(werror.InvalidInput)
	}

	return signingShare, share.NewSubShare(x, y), nil
}
