package provider

import (
	"bytes"
	"crypto/aes"
	"encoding/base64"
	"fmt"
)

// payloadKeySize is the AES-256 key length the provider expects
const payloadKeySize = 32

// payloadKey pads the shared secret with zero bytes, or truncates it, to 32 bytes
func payloadKey(secret string) []byte {
	key := make([]byte, payloadKeySize)
	copy(key, secret)
	return key
}

// EncryptPayload encrypts plaintext with AES-256 in ECB mode under PKCS#7
// padding and returns it base64 encoded
func EncryptPayload(plaintext []byte, secret string) (string, error) {
	block, err := aes.NewCipher(payloadKey(secret))
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	size := block.BlockSize()
	padded := pkcs7Pad(plaintext, size)
	out := make([]byte, len(padded))
	for i := 0; i < len(padded); i += size {
		block.Encrypt(out[i:i+size], padded[i:i+size])
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

// DecryptPayload reverses EncryptPayload
func DecryptPayload(encoded string, secret string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	block, err := aes.NewCipher(payloadKey(secret))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	size := block.BlockSize()
	if len(raw) == 0 || len(raw)%size != 0 {
		return nil, fmt.Errorf("payload is not a whole number of blocks")
	}
	out := make([]byte, len(raw))
	for i := 0; i < len(raw); i += size {
		block.Decrypt(out[i:i+size], raw[i:i+size])
	}
	return pkcs7Unpad(out, size)
}

func pkcs7Pad(data []byte, size int) []byte {
	n := size - len(data)%size
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, size int) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > size || n > len(data) {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
