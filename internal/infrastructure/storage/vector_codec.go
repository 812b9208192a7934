package storage

import (
	"encoding/binary"
	"math"
)

// EncodeVector 将向量编码为小端 float32 字节序列
func EncodeVector(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeVector 从字节序列解码向量
// 长度不是 4 的倍数时丢弃尾部残余（视为损坏行，由检索层按维度过滤）
func DecodeVector(data []byte) []float32 {
	if len(data) < 4 {
		return nil
	}
	n := len(data) / 4
	vec := make([]float32, n)
	for i := 0; i < n; i++ {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec
}
