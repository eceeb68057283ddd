package sm4

import (
	"crypto/cipher"
	"errors"
)

// ErrUnsupported 代表所选策略在当前CPU上不可用。
// 构造引擎时不做静默回退，调用方可先以Strategy.Supported()探查后降级。
var ErrUnsupported = errors.New("sm4: strategy not supported by this cpu")

// Strategy 代表引擎的执行策略。四种策略共用同一套秘钥扩展结果，
// 对相同的秘钥与输入必须产生完全一致的输出，仅执行方式不同。
type Strategy int

const (
	// Reference 为基础策略：每轮逐位执行Sbox替换与线性变换L(.)，
	// 是其余策略的正确性基准。
	Reference Strategy = iota
	// TTable 为查表策略：τ(.)与L(.)的复合预计算为4张进程内共享的只读
	// 查找表（详见ttable.go），任何CPU上均可用。
	TTable
	// AESNI 为硬件标量策略：以AES指令族的探测结果为门槛，
	// 轮函数执行与基础策略一致的标量运算（详见aesni.go）。
	AESNI
	// Modern 为现代指令集批量策略：以AVX或ASIMD的探测结果为门槛，
	// 按4个分组一组交错处理（详见modern.go）。
	Modern
)

// String 返回策略名称。
func (s Strategy) String() string {
	switch s {
	case Reference:
		return "Reference"
	case TTable:
		return "TTable"
	case AESNI:
		return "AESNI"
	case Modern:
		return "Modern"
	}
	return "Unknown"
}

// Supported 报告策略在当前CPU上是否可用。纯软件策略恒为可用，
// 硬件相关策略以进程启动时的探测结果（详见capability.go）为准。
func (s Strategy) Supported() bool {
	switch s {
	case Reference, TTable:
		return true
	case AESNI:
		return hasAES
	case Modern:
		return hasAVX || hasASIMD
	}
	return false
}

// Engine 代表绑定了一种执行策略的SM4分组加密引擎，
// 持有按加密次序与解密次序分别展开的两套轮秘钥。
// Engine实现了标准库crypto/cipher.Block接口，可直接与标准库的
// 分组工作模式（CBC、CTR、GCM等）组合使用。
type Engine struct {
	enc      []uint32
	dec      []uint32
	strategy Strategy
}

// New 创设使用默认策略（TTable）的SM4引擎并完成秘钥扩展。
func New(key []byte) (*Engine, error) {
	return NewEngine(TTable, key)
}

// NewEngine 创设指定策略的SM4引擎并完成秘钥扩展。
// 策略在当前CPU上不可用时返回ErrUnsupported，秘钥长度不正确时返回KeySizeError。
func NewEngine(s Strategy, key []byte) (*Engine, error) {
	if !s.Supported() {
		return nil, ErrUnsupported
	}
	e := &Engine{strategy: s}
	if err := e.SetKey(key); err != nil {
		return nil, err
	}
	return e, nil
}

// NewCipher 创设SM4密文类实例，以标准库crypto/cipher.Block接口返回。
func NewCipher(key []byte) (cipher.Block, error) {
	return New(key)
}

// SetKey 校验秘钥长度并重新执行秘钥扩展，旧轮秘钥被整体覆盖，
// 引擎由此可换秘钥复用。
func (e *Engine) SetKey(key []byte) error {
	if n := len(key); n != KeySize {
		return KeySizeError(n)
	}
	if e.strategy == TTable || e.strategy == Modern {
		tableOnce.Do(initTables)
	}
	e.enc = expandKey(key, true)
	e.dec = expandKey(key, false)
	return nil
}

// Strategy 返回引擎绑定的执行策略。
func (e *Engine) Strategy() Strategy {
	return e.strategy
}

// BlockSize 返回SM4算法的分组长度。
func (e *Engine) BlockSize() int {
	return BlockSize
}

// Encrypt 将src的第一个分组加密后写入dst。src与dst可为同一数组。
func (e *Engine) Encrypt(dst, src []byte) {
	if len(src) < BlockSize {
		panic("sm4: input not full block")
	}
	if len(dst) < BlockSize {
		panic("sm4: output not full block")
	}
	e.crypt(e.enc, dst, src)
}

// Decrypt 将src的第一个分组解密后写入dst。解密与加密共用同一个分组
// 处理函数，轮秘钥已在扩展时按相反次序存储。
func (e *Engine) Decrypt(dst, src []byte) {
	if len(src) < BlockSize {
		panic("sm4: input not full block")
	}
	if len(dst) < BlockSize {
		panic("sm4: output not full block")
	}
	e.crypt(e.dec, dst, src)
}

// EncryptBlocks 依次加密src中的连续分组并写入dst，输出次序与输入一致。
// src长度必须为分组长度的整数倍。Modern策略按4分组一组并行处理，
// 其余策略逐分组处理。
func (e *Engine) EncryptBlocks(dst, src []byte) {
	e.cryptBlocks(e.enc, dst, src)
}

// DecryptBlocks 依次解密src中的连续分组并写入dst，约束与EncryptBlocks相同。
func (e *Engine) DecryptBlocks(dst, src []byte) {
	e.cryptBlocks(e.dec, dst, src)
}

// Clear 将持有的全部轮秘钥清零。清零后引擎不再可用，重新SetKey后恢复。
func (e *Engine) Clear() {
	for i := range e.enc {
		e.enc[i] = 0
	}
	for i := range e.dec {
		e.dec[i] = 0
	}
}

// crypt 按策略分派单分组处理。
func (e *Engine) crypt(rk []uint32, dst, src []byte) {
	switch e.strategy {
	case Reference:
		processBlock(rk, src, dst)
	case AESNI:
		processBlockAESNI(rk, src, dst)
	default:
		processBlockT(rk, src, dst)
	}
}

// cryptBlocks 按策略分派多分组处理。
func (e *Engine) cryptBlocks(rk []uint32, dst, src []byte) {
	if len(src)%BlockSize != 0 {
		panic("sm4: input not full blocks")
	}
	if len(dst) < len(src) {
		panic("sm4: output smaller than input")
	}
	if e.strategy == Modern {
		cryptBlocksBatch(rk, dst, src)
		return
	}
	for o := 0; o < len(src); o += BlockSize {
		e.crypt(rk, dst[o:o+BlockSize], src[o:o+BlockSize])
	}
}
