// Package gcm 为SM4分组密码的GCM认证加密工作模式(AEAD)实现
// （参考标准: NIST SP 800-38D；SM4-GCM套件编号见RFC 8998）。
// 使用许可: Apache License 2.0
//
// 会话遵循 SetKey → SetIV → (可选)SetAAD → Encrypt/Decrypt 的使用次序，
// 秘钥与IV未设置即加解密将分别返回ErrMissingKey与ErrMissingIV。
// 认证标签按 AAD‖密文‖[AAD比特长]64‖[密文比特长]64 的次序原样连接送入
// GHASH计算，各字段之间不做分组对齐填充，仅最后一个不足16字节的分组补零；
// 解密先校验标签、校验通过后才输出明文。同一秘钥下绝不可重复使用IV。
package gcm

import (
	"crypto/subtle"
	"encoding/binary"
	"errors"

	"github.com/Forgot-Dream/sduWLKJAQCXCYSJK/sm4"
)

const (
	// BlockSize 代表GCM的处理分组长度，与SM4分组长度一致。
	BlockSize = 16
	// TagSize 代表认证标签未经截断的完整长度。
	TagSize = 16
	// IVSize 代表推荐的IV长度(96位)，该长度下J0的推导走免GHASH的快路径。
	IVSize = 12
)

var (
	// ErrMissingKey 代表尚未设置秘钥即执行加解密。
	ErrMissingKey = errors.New("gcm: key not set")
	// ErrMissingIV 代表尚未设置IV即执行加解密。
	ErrMissingIV = errors.New("gcm: iv not set")
	// ErrAuthentication 代表解密时认证标签校验失败。
	ErrAuthentication = errors.New("gcm: message authentication failed")
)

// Session 代表一次SM4-GCM加解密会话，持有SM4引擎与由秘钥推导的
// 哈希子秘钥H。会话可换秘钥、换IV复用；Clear()清空全部敏感材料。
// Session并发不安全，不同goroutine应各自创设会话。
type Session struct {
	engine *sm4.Engine
	h0, h1 uint64 // 哈希子秘钥H = E_K(0^128)，每次SetKey推导一次
	iv     []byte
	aad    []byte
	keyed  bool
}

// NewSession 创设空白会话，秘钥与IV均处于未设置状态。
func NewSession() *Session {
	return new(Session)
}

// SetKey 设置16字节秘钥：完成SM4秘钥扩展并推导哈希子秘钥H，
// 秘钥长度不正确时返回sm4.KeySizeError。
func (g *Session) SetKey(key []byte) error {
	if g.engine == nil {
		e, err := sm4.New(key)
		if err != nil {
			return err
		}
		g.engine = e
	} else if err := g.engine.SetKey(key); err != nil {
		return err
	}

	var zero, h [BlockSize]byte
	g.engine.Encrypt(h[:], zero[:])
	g.h0 = binary.BigEndian.Uint64(h[0:8])
	g.h1 = binary.BigEndian.Uint64(h[8:16])
	memwipe(h[:])
	g.keyed = true
	return nil
}

// SetIV 记录IV，空IV返回ErrMissingIV。推荐使用96位(12字节)IV。
func (g *Session) SetIV(iv []byte) error {
	if len(iv) == 0 {
		return ErrMissingIV
	}
	g.iv = append(g.iv[:0], iv...)
	return nil
}

// SetAAD 记录附加认证数据（仅参与认证、不加密），须在加解密之前调用；
// 不调用或传入空值均视为无附加认证数据。
func (g *Session) SetAAD(aad []byte) {
	g.aad = append(g.aad[:0], aad...)
}

// Encrypt 加密plaintext并计算认证标签。密文与明文等长；
// 标签取GHASH结果与E_K(J0)异或后的前min(tagLen, 16)字节。
func (g *Session) Encrypt(plaintext []byte, tagLen int) (ciphertext, tag []byte, err error) {
	if !g.keyed {
		return nil, nil, ErrMissingKey
	}
	if len(g.iv) == 0 {
		return nil, nil, ErrMissingIV
	}

	var j0, mask [BlockSize]byte
	g.deriveJ0(&j0)
	g.engine.Encrypt(mask[:], j0[:])

	ciphertext = make([]byte, len(plaintext))
	g.ctrCrypt(&j0, ciphertext, plaintext)

	var full [TagSize]byte
	g.authTag(ciphertext, &mask, &full)

	n := tagLen
	if n > TagSize {
		n = TagSize
	}
	if n < 0 {
		n = 0
	}
	tag = make([]byte, n)
	copy(tag, full[:n])

	memwipe(mask[:])
	return ciphertext, tag, nil
}

// Decrypt 先基于输入密文计算期望标签并与tag常数时间比较，
// 校验通过后才执行解密；校验失败返回ErrAuthentication且不输出任何明文字节。
// tag超过16字节时仅比较前16字节，与Encrypt的截断规则对应。
func (g *Session) Decrypt(ciphertext, tag []byte) ([]byte, error) {
	if !g.keyed {
		return nil, ErrMissingKey
	}
	if len(g.iv) == 0 {
		return nil, ErrMissingIV
	}

	var j0, mask [BlockSize]byte
	g.deriveJ0(&j0)
	g.engine.Encrypt(mask[:], j0[:])

	var want [TagSize]byte
	g.authTag(ciphertext, &mask, &want)
	memwipe(mask[:])

	n := len(tag)
	if n > TagSize {
		n = TagSize
	}
	if subtle.ConstantTimeCompare(want[:n], tag[:n]) != 1 {
		return nil, ErrAuthentication
	}

	plaintext := make([]byte, len(ciphertext))
	g.ctrCrypt(&j0, plaintext, ciphertext)
	return plaintext, nil
}

// Clear 清空会话持有的全部敏感材料：轮秘钥、哈希子秘钥、IV与AAD缓冲。
// 清空后会话回到未设置状态，重新SetKey、SetIV后可继续使用。
func (g *Session) Clear() {
	if g.engine != nil {
		g.engine.Clear()
	}
	g.h0, g.h1 = 0, 0
	memwipe(g.iv)
	memwipe(g.aad)
	g.iv = g.iv[:0]
	g.aad = g.aad[:0]
	g.keyed = false
}

// deriveJ0 由IV推导初始计数器J0：
// (1) IV恰为96位时，J0 = IV ‖ 0x00000001，免去一次GHASH运算；
// (2) 其他长度时，J0 = GHASH(IV ‖ 补零 ‖ [0]64 ‖ [IV比特长]64)。
func (g *Session) deriveJ0(j0 *[BlockSize]byte) {
	if len(g.iv) == IVSize {
		copy(j0[:], g.iv)
		binary.BigEndian.PutUint32(j0[IVSize:], 1)
		return
	}
	h := newGHASH(g.h0, g.h1)
	h.write(g.iv)
	h.pad()
	var lens [BlockSize]byte
	binary.BigEndian.PutUint64(lens[8:16], uint64(len(g.iv))*8)
	h.write(lens[:])
	h.sum(j0)
}

// authTag 计算完整的128位认证标签：
// GHASH(AAD ‖ ct ‖ [AAD比特长]64 ‖ [ct比特长]64) ⊕ E_K(J0)，
// 各字段原样连接写入、不做分组对齐。
func (g *Session) authTag(ct []byte, mask, tag *[BlockSize]byte) {
	h := newGHASH(g.h0, g.h1)
	h.write(g.aad)
	h.write(ct)
	var lens [BlockSize]byte
	binary.BigEndian.PutUint64(lens[0:8], uint64(len(g.aad))*8)
	binary.BigEndian.PutUint64(lens[8:16], uint64(len(ct))*8)
	h.write(lens[:])
	h.sum(tag)
	for i := range tag {
		tag[i] ^= mask[i]
	}
}

// ctrCrypt 以J0为起点的CTR方式处理数据：每个分组前先将计数器低32位加一
// （首个数据分组即使用inc32(J0)），生成的秘钥流与src异或写入dst，
// 尾部不足一组时仅取秘钥流前缀。加密与解密为同一运算。
func (g *Session) ctrCrypt(j0 *[BlockSize]byte, dst, src []byte) {
	var ctr, ks [BlockSize]byte
	ctr = *j0
	for len(src) > 0 {
		inc32(&ctr)
		g.engine.Encrypt(ks[:], ctr[:])
		n := subtle.XORBytes(dst, src, ks[:])
		src = src[n:]
		dst = dst[n:]
	}
	memwipe(ks[:])
}

// inc32 将计数器最低32位按大端加一，溢出时回绕、高96位不受影响。
func inc32(ctr *[BlockSize]byte) {
	n := binary.BigEndian.Uint32(ctr[IVSize:])
	binary.BigEndian.PutUint32(ctr[IVSize:], n+1)
}

// memwipe 清零敏感字节缓冲。
func memwipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
