package gcm

import "encoding/binary"

// ghash 为GCM泛哈希函数GHASH的流式累加器。128位域元素以两个64位字表示
// （h0/y0为高半、h1/y1为低半，均按大端语义），每凑满16字节分组即折叠:
// Y = (Y ⊕ X_i) • H。认证输入的各字段经write()连续写入，字段之间不做
// 分组对齐填充，仅在需要对齐的场合显式调用pad()。
type ghash struct {
	h0, h1 uint64
	y0, y1 uint64
	buf    [BlockSize]byte
	n      int
}

func newGHASH(h0, h1 uint64) *ghash {
	return &ghash{h0: h0, h1: h1}
}

// write 连续写入认证数据，凑满16字节分组即折叠进累加器，
// 不足一组的尾部暂存于buf等待后续写入凑齐。
func (g *ghash) write(p []byte) {
	if g.n > 0 {
		c := copy(g.buf[g.n:], p)
		g.n += c
		p = p[c:]
		if g.n < BlockSize {
			return
		}
		g.fold(g.buf[:])
		g.n = 0
	}
	for len(p) >= BlockSize {
		g.fold(p[:BlockSize])
		p = p[BlockSize:]
	}
	if len(p) > 0 {
		g.n = copy(g.buf[:], p)
	}
}

// pad 以零字节补齐当前未满的分组并立即折叠，用于字段之间需要分组对齐的
// 场合（非96位IV推导J0时，IV段与长度段之间按规定补零对齐）。
func (g *ghash) pad() {
	if g.n == 0 {
		return
	}
	for i := g.n; i < BlockSize; i++ {
		g.buf[i] = 0
	}
	g.fold(g.buf[:])
	g.n = 0
}

// sum 结算GHASH值：对最后一个不足16字节的分组补零折叠后输出累加器Y。
func (g *ghash) sum(out *[BlockSize]byte) {
	g.pad()
	binary.BigEndian.PutUint64(out[0:8], g.y0)
	binary.BigEndian.PutUint64(out[8:16], g.y1)
}

// fold 将一个16字节分组异或进累加器并执行一次域乘。
func (g *ghash) fold(b []byte) {
	g.y0 ^= binary.BigEndian.Uint64(b[0:8])
	g.y1 ^= binary.BigEndian.Uint64(b[8:16])
	g.mul()
}

// mul 在GF(2^128)上执行 Y = Y • H（NIST SP 800-38D第6.3部分）：
// 按最高位在前的比特序逐位扫描Y，遇1则将被乘数V累加进结果；
// V每步右移一位，低端移出1时将约简多项式字节0xE1折回最高字节。
func (g *ghash) mul() {
	var z0, z1 uint64
	v0, v1 := g.h0, g.h1

	x := g.y0
	for i := 0; i < 64; i++ {
		if x&(1<<(63-i)) != 0 {
			z0 ^= v0
			z1 ^= v1
		}
		carry := v1 & 1
		v1 = v1>>1 | v0<<63
		v0 >>= 1
		if carry != 0 {
			v0 ^= 0xe100000000000000
		}
	}
	x = g.y1
	for i := 0; i < 64; i++ {
		if x&(1<<(63-i)) != 0 {
			z0 ^= v0
			z1 ^= v1
		}
		carry := v1 & 1
		v1 = v1>>1 | v0<<63
		v0 >>= 1
		if carry != 0 {
			v0 ^= 0xe100000000000000
		}
	}

	g.y0, g.y1 = z0, z1
}
