// Package envelope 实现 Keepz 文档规定的混合加密：
// AES-256-CBC 加密业务 JSON，base64(key)+"."+base64(iv) 再用
// RSA-OAEP(SHA-256) 加密。格式必须和渠道逐字节一致，否则请求直接被拒。
package envelope

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidEnvelope = errors.New("invalid envelope")
	ErrInvalidPadding  = errors.New("invalid pkcs7 padding")
)

// Envelope 渠道要求的密文载荷
type Envelope struct {
	EncryptedData string `json:"encryptedData"`
	EncryptedKeys string `json:"encryptedKeys"`
}

// Encrypt 用随机 AES-256 密钥加密 payload，再用渠道公钥封装密钥
func Encrypt(payload []byte, pub *rsa.PublicKey) (*Envelope, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	padded := pkcs7Pad(payload, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	// 渠道规定的密钥拼接格式：base64(key) + "." + base64(iv)
	keys := base64.StdEncoding.EncodeToString(key) + "." + base64.StdEncoding.EncodeToString(iv)

	encryptedKeys, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, []byte(keys), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt keys: %w", err)
	}

	return &Envelope{
		EncryptedData: base64.StdEncoding.EncodeToString(ciphertext),
		EncryptedKeys: base64.StdEncoding.EncodeToString(encryptedKeys),
	}, nil
}

// Decrypt 用我方私钥解出 AES 密钥后还原 payload
func Decrypt(env *Envelope, priv *rsa.PrivateKey) ([]byte, error) {
	encryptedKeys, err := base64.StdEncoding.DecodeString(env.EncryptedKeys)
	if err != nil {
		return nil, fmt.Errorf("%w: bad encryptedKeys encoding", ErrInvalidEnvelope)
	}

	keys, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, encryptedKeys, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt keys: %w", err)
	}

	parts := strings.SplitN(string(keys), ".", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: key concat missing separator", ErrInvalidEnvelope)
	}

	key, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(key) != 32 {
		return nil, fmt.Errorf("%w: bad aes key", ErrInvalidEnvelope)
	}
	iv, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil || len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("%w: bad iv", ErrInvalidEnvelope)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(env.EncryptedData)
	if err != nil || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: bad encryptedData", ErrInvalidEnvelope)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	return pkcs7Unpad(plaintext, aes.BlockSize)
}

// ParsePublicKey 解析渠道公钥，兼容 base64 DER 和 PEM 两种下发格式
func ParsePublicKey(raw string) (*rsa.PublicKey, error) {
	var der []byte
	if block, _ := pem.Decode([]byte(raw)); block != nil {
		der = block.Bytes
	} else {
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("public key is neither PEM nor base64 DER: %w", err)
		}
		der = decoded
	}

	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is not RSA: %T", parsed)
	}
	return pub, nil
}

// ParsePrivateKey 解析我方私钥，先试 PKCS8 再退回 PKCS1
func ParsePrivateKey(raw string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(raw))
	if block == nil {
		return nil, errors.New("failed to decode private key PEM block")
	}

	if parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		priv, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private key is not RSA: %T", parsed)
		}
		return priv, nil
	}

	priv, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return priv, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrInvalidPadding
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, ErrInvalidPadding
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, ErrInvalidPadding
		}
	}
	return data[:len(data)-padding], nil
}
