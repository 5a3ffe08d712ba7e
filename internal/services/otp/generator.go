package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Generator produces numeric codes of the requested length.
type Generator interface {
	Generate(length int) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(length int) (string, error)

func (f GeneratorFunc) Generate(length int) (string, error) { return f(length) }

// RandomGenerator draws codes from crypto/rand. Leading zeros are kept.
type RandomGenerator struct{}

func (RandomGenerator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid code length %d", length)
	}
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	s := n.String()
	return strings.Repeat("0", length-len(s)) + s, nil
}
