package infrastructure

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// NumericCodeGenerator 用 crypto/rand 生成定长数字核销码
type NumericCodeGenerator struct {
	length int
}

func NewNumericCodeGenerator(length int) *NumericCodeGenerator {
	if length <= 0 {
		length = 4
	}
	return &NumericCodeGenerator{length: length}
}

func (g *NumericCodeGenerator) NewCode() (string, error) {
	buf := make([]byte, g.length)
	ten := big.NewInt(10)
	for i := range buf {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("read random digit: %w", err)
		}
		buf[i] = byte('0' + n.Int64())
	}
	return string(buf), nil
}
