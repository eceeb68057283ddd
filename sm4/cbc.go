package sm4

import (
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
)

// 按pkcs7规则填充尾部字节
func pkcs7Padding(src []byte) []byte {
	padding := BlockSize - len(src)%BlockSize
	padtext := bytes.Repeat([]byte{byte(padding)}, padding)
	return append(src, padtext...)
}

// 按pkcs7规则截去尾部填充字节
func pkcs7UnPadding(src []byte) ([]byte, error) {
	length := len(src)
	if length == 0 {
		return nil, errors.New("Invalid pkcs7 padding (empty input)")
	}
	unpadding := int(src[length-1])

	if unpadding > BlockSize || unpadding == 0 || unpadding > length {
		return nil, errors.New("Invalid pkcs7 padding (unpadding > BlockSize || unpadding == 0)")
	}

	pad := src[len(src)-unpadding:]
	for i := 0; i < unpadding; i++ {
		if pad[i] != byte(unpadding) {
			return nil, errors.New("Invalid pkcs7 padding (pad[i] != unpadding)")
		}
	}

	return src[:(length - unpadding)], nil
}

// CBC模式加密
func cbcEncrypt(key, s []byte) ([]byte, error) {
	return cbcEncryptWithRand(rand.Reader, key, s)
}

// 引入随机数为"初始向量"并以CBC模式加盐加密
func cbcEncryptWithRand(prng io.Reader, key, s []byte) ([]byte, error) {
	if len(s)%BlockSize != 0 {
		return nil, errors.New("Invalid plaintext. It must be a multiple of the block size")
	}

	block, err := NewCipher(key)
	if err != nil {
		return nil, err
	}

	ciphertext := make([]byte, BlockSize+len(s))
	iv := ciphertext[:BlockSize]
	if _, err := io.ReadFull(prng, iv); err != nil {
		return nil, err
	}

	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(ciphertext[BlockSize:], s)

	return ciphertext, nil
}

// 以给定的初始向量以CBC模式加盐加密
func cbcEncryptWithIV(IV []byte, key, s []byte) ([]byte, error) {
	if len(s)%BlockSize != 0 {
		return nil, errors.New("Invalid plaintext. It must be a multiple of the block size")
	}

	if len(IV) != BlockSize {
		return nil, errors.New("Invalid IV. It must have length the block size")
	}

	block, err := NewCipher(key)
	if err != nil {
		return nil, err
	}

	ciphertext := make([]byte, BlockSize+len(s))
	copy(ciphertext[:BlockSize], IV)

	mode := cipher.NewCBCEncrypter(block, IV)
	mode.CryptBlocks(ciphertext[BlockSize:], s)

	return ciphertext, nil
}

// 以输入消息头部信息为初始向量CBC模式解密
func cbcDecrypt(key, src []byte) ([]byte, error) {
	block, err := NewCipher(key)
	if err != nil {
		return nil, err
	}

	if len(src) < BlockSize {
		return nil, errors.New("Invalid ciphertext. It must be a multiple of the block size")
	}
	iv := src[:BlockSize]
	src = src[BlockSize:]

	if len(src)%BlockSize != 0 {
		return nil, errors.New("Invalid ciphertext. It must be a multiple of the block size")
	}

	mode := cipher.NewCBCDecrypter(block, iv)

	mode.CryptBlocks(src, src)

	return src, nil
}

// CBCPKCS7Encrypt combines CBC encryption and PKCS7 padding
func CBCPKCS7Encrypt(key, src []byte) ([]byte, error) {
	// First pad
	tmp := pkcs7Padding(src)

	// Then encrypt
	return cbcEncrypt(key, tmp)
}

// CBCPKCS7EncryptWithRand combines CBC encryption and PKCS7 padding using as prng the passed to the function
func CBCPKCS7EncryptWithRand(prng io.Reader, key, src []byte) ([]byte, error) {
	// First pad
	tmp := pkcs7Padding(src)

	// Then encrypt
	return cbcEncryptWithRand(prng, key, tmp)
}

// CBCPKCS7EncryptWithIV combines CBC encryption and PKCS7 padding, the IV used is the one passed to the function
func CBCPKCS7EncryptWithIV(IV []byte, key, src []byte) ([]byte, error) {
	// First pad
	tmp := pkcs7Padding(src)

	// Then encrypt
	return cbcEncryptWithIV(IV, key, tmp)
}

// CBCPKCS7Decrypt combines CBC decryption and PKCS7 unpadding
func CBCPKCS7Decrypt(key, src []byte) ([]byte, error) {
	// First decrypt
	pt, err := cbcDecrypt(key, src)
	if err == nil {
		return pkcs7UnPadding(pt)
	}
	return nil, err
}
