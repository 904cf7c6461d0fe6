package patient

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// Cipher encrypts contact fields at rest. The AES key is derived by hashing
// the configured secret; each encryption uses a fresh random IV prepended to
// the ciphertext. Equality lookups use a keyed digest of the plaintext, since
// the ciphertext itself is not deterministic.
type Cipher struct {
	key    [32]byte
	secret []byte
}

func NewCipher(secret string) *Cipher {
	return &Cipher{
		key:    sha256.Sum256([]byte(secret)),
		secret: []byte(secret),
	}
}

func (c *Cipher) Encrypt(value string) (string, error) {
	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return "", err
	}
	plaintext := pad([]byte(value), aes.BlockSize)
	buf := make([]byte, aes.BlockSize+len(plaintext))
	iv := buf[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(buf[aes.BlockSize:], plaintext)
	return hex.EncodeToString(buf), nil
}

func (c *Cipher) Decrypt(value string) (string, error) {
	data, err := hex.DecodeString(value)
	if err != nil {
		return "", err
	}
	if len(data) < 2*aes.BlockSize || len(data)%aes.BlockSize != 0 {
		return "", errors.New("ciphertext truncated")
	}
	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return "", err
	}
	plaintext := make([]byte, len(data)-aes.BlockSize)
	cipher.NewCBCDecrypter(block, data[:aes.BlockSize]).CryptBlocks(plaintext, data[aes.BlockSize:])
	return unpad(plaintext, aes.BlockSize)
}

// Digest is the deterministic lookup form of a plaintext value, used for
// uniqueness checks against stored records.
func (c *Cipher) Digest(value string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// PKCS#7

func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func unpad(data []byte, blockSize int) (string, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return "", errors.New("invalid padded length")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return "", fmt.Errorf("invalid padding byte %d", n)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return "", errors.New("inconsistent padding")
		}
	}
	return string(data[:len(data)-n]), nil
}
