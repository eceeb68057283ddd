package sm4

// AESNI硬件标量策略。
//
// 该策略以AES指令族的探测结果作为可用性门槛（详见capability.go），
// 但轮函数本身执行与基础策略完全一致的标量运算：AES轮指令面向的是
// AES的字节代换与列混合，与SM4的τ(.)和L(.)并不同构，纯Go层面没有
// 与之对应的单指令表达。能力声明与执行路径由此刻意分离，
// 保证该策略与其他策略对任何输入产生逐位一致的输出。

// processBlockAESNI 为AESNI策略的单分组处理函数，委托基础实现完成运算。
func processBlockAESNI(rk []uint32, in, out []byte) {
	processBlock(rk, in, out)
}
