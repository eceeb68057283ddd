package sm4

import "encoding/binary"

// Modern现代指令集批量策略。
//
// 该策略以AVX(x86)或ASIMD(arm64)的探测结果作为可用性门槛，按BatchSize(4)个
// 分组为一组交错执行32轮迭代：同一轮秘钥依次作用于4路独立的状态字组，
// 各分组的数学过程与基础策略完全一致，仅调度次序不同。不足一组的尾部分组
// 退化为查表策略的单分组路径处理。AVX2一并探测记录，
// 当前未启用与之对应的专门快路径。

// cryptBlocks4 对4个连续分组交错执行32轮迭代与反序变换。
// dst与src的长度均不得小于4个分组。
func cryptBlocks4(rk []uint32, dst, src []byte) {
	var x [BatchSize * 4]uint32
	for b := 0; b < BatchSize; b++ {
		o := b * BlockSize
		x[b*4+0] = binary.BigEndian.Uint32(src[o : o+4])
		x[b*4+1] = binary.BigEndian.Uint32(src[o+4 : o+8])
		x[b*4+2] = binary.BigEndian.Uint32(src[o+8 : o+12])
		x[b*4+3] = binary.BigEndian.Uint32(src[o+12 : o+16])
	}

	for i := 0; i < Rounds; i++ {
		k := rk[i]
		for b := 0; b < BatchSize; b++ {
			s := x[b*4 : b*4+4]
			n := s[0] ^ tLookup(s[1]^s[2]^s[3]^k)
			s[0] = s[1]
			s[1] = s[2]
			s[2] = s[3]
			s[3] = n
		}
	}

	for b := 0; b < BatchSize; b++ {
		o := b * BlockSize
		r(x[b*4 : b*4+4])
		binary.BigEndian.PutUint32(dst[o:o+4], x[b*4+0])
		binary.BigEndian.PutUint32(dst[o+4:o+8], x[b*4+1])
		binary.BigEndian.PutUint32(dst[o+8:o+12], x[b*4+2])
		binary.BigEndian.PutUint32(dst[o+12:o+16], x[b*4+3])
	}
}

// cryptBlocksBatch 为批量策略的多分组处理函数：整组按cryptBlocks4并行，
// 余数逐分组处理，输出次序与输入保持一致。
func cryptBlocksBatch(rk []uint32, dst, src []byte) {
	n := len(src) / BlockSize
	i := 0
	for ; i+BatchSize <= n; i += BatchSize {
		o := i * BlockSize
		cryptBlocks4(rk, dst[o:o+BatchSize*BlockSize], src[o:o+BatchSize*BlockSize])
	}
	for ; i < n; i++ {
		o := i * BlockSize
		processBlockT(rk, src[o:o+BlockSize], dst[o:o+BlockSize])
	}
}
