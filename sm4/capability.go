package sm4

import "golang.org/x/sys/cpu"

// CPU特性在进程启动时探测一次，此后进程范围内共享只读；
// 策略的可用性判断（Strategy.Supported）以这批标志为准。
var (
	hasAES    = cpu.X86.HasAES || cpu.ARM64.HasAES
	hasPCLMUL = cpu.X86.HasPCLMULQDQ || cpu.ARM64.HasPMULL
	hasAVX    = cpu.X86.HasAVX
	hasAVX2   = cpu.X86.HasAVX2
	hasASIMD  = cpu.ARM64.HasASIMD
)

// Features 为硬件特性探测结果的只读快照。
// 其中部分特性仅探测并记录、尚无专门的快路径与之对应，
// 调用方可据此区分“已支持且启用”“已支持未启用”“不支持需回退”三种情形。
type Features struct {
	AES    bool // AES指令族，AESNI策略的门槛特性
	PCLMUL bool // 无进位乘法指令，探测并记录
	AVX    bool // AVX，Modern策略在x86上的门槛特性
	AVX2   bool // AVX2，探测并记录
	ASIMD  bool // 向量扩展，Modern策略在arm64上的门槛特性
}

// CPUFeatures 返回进程启动时探测到的硬件特性。
func CPUFeatures() Features {
	return Features{
		AES:    hasAES,
		PCLMUL: hasPCLMUL,
		AVX:    hasAVX,
		AVX2:   hasAVX2,
		ASIMD:  hasASIMD,
	}
}
