package sm4

import (
	"encoding/binary"
	"sync"
)

// T-table查表策略：将每轮中逐字节Sbox替换与线性变换L(.)的复合预先计算为
// 4张256项的32位查找表，合成置换T(.)由此退化为4次查表与3次异或。
// 由于L(.)对异或满足线性，T(x) = T0[x>>24] ^ T1[x>>16] ^ T2[x>>8] ^ T3[x]
// 与逐位计算的结果完全一致。

var (
	tableOnce      sync.Once
	t0, t1, t2, t3 [256]uint32
)

// initTables 生成查找表：Ti[b] = L(Sbox(b) << (24-8i))。
// 经tableOnce保证进程内仅生成一次，生成后四张表只读，并发使用无须加锁。
func initTables() {
	for i := 0; i < 256; i++ {
		w := uint32(sbox(byte(i)))
		t0[i] = l(w << 24)
		t1[i] = l(w << 16)
		t2[i] = l(w << 8)
		t3[i] = l(w)
	}
}

// tLookup 为查表版的合成置换T(.)。
func tLookup(z uint32) uint32 {
	return t0[z>>24] ^ t1[z>>16&0xff] ^ t2[z>>8&0xff] ^ t3[z&0xff]
}

// processBlockT 为查表策略的单分组处理函数，32轮迭代结构与processBlock
// 一致，仅将合成置换替换为tLookup。
func processBlockT(rk []uint32, in, out []byte) {
	var x [BlockSize / 4]uint32
	x[0] = binary.BigEndian.Uint32(in[0:4])
	x[1] = binary.BigEndian.Uint32(in[4:8])
	x[2] = binary.BigEndian.Uint32(in[8:12])
	x[3] = binary.BigEndian.Uint32(in[12:16])

	for i := 0; i < Rounds; i += 4 {
		x[0] ^= tLookup(x[1] ^ x[2] ^ x[3] ^ rk[i])
		x[1] ^= tLookup(x[2] ^ x[3] ^ x[0] ^ rk[i+1])
		x[2] ^= tLookup(x[3] ^ x[0] ^ x[1] ^ rk[i+2])
		x[3] ^= tLookup(x[0] ^ x[1] ^ x[2] ^ rk[i+3])
	}
	r(x[:])

	binary.BigEndian.PutUint32(out[0:4], x[0])
	binary.BigEndian.PutUint32(out[4:8], x[1])
	binary.BigEndian.PutUint32(out[8:12], x[2])
	binary.BigEndian.PutUint32(out[12:16], x[3])
}
