package smstoken

import (
	"crypto/rand"
	"errors"
	"math/big"

	"github.com/Mieluoxxx/siriusx-sms-validator/internal/config"
)

const (
	// Digits 默认字母表
	Digits = "0123456789"
	// Alphanumeric 大写字母与数字
	Alphanumeric = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

var (
	// ErrInvalidKeyLength Key 长度超出范围
	ErrInvalidKeyLength = errors.New("key length must be between 1 and 40")
	// ErrEmptyAlphabet 字母表为空
	ErrEmptyAlphabet = errors.New("key alphabet must not be empty")
)

// KeyGenerator 生成一个随机 Key
// 实现必须可并发调用，不依赖共享的可变状态
type KeyGenerator func() (string, error)

// NewKeyGenerator 从字母表中均匀抽取 length 个字符
func NewKeyGenerator(alphabet string, length int) (KeyGenerator, error) {
	if length < 1 || length > config.MaxTokenLength {
		return nil, ErrInvalidKeyLength
	}
	if alphabet == "" {
		return nil, ErrEmptyAlphabet
	}

	symbols := []rune(alphabet)
	size := big.NewInt(int64(len(symbols)))

	return func() (string, error) {
		key := make([]rune, length)
		for i := range key {
			n, err := rand.Int(rand.Reader, size)
			if err != nil {
				return "", err
			}
			key[i] = symbols[n.Int64()]
		}
		return string(key), nil
	}, nil
}

// DigitGenerator 纯数字 Key，例如短信验证码 "042917"
func DigitGenerator(length int) (KeyGenerator, error) {
	return NewKeyGenerator(Digits, length)
}

// AlphanumericGenerator 字母数字 Key
func AlphanumericGenerator(length int) (KeyGenerator, error) {
	return NewKeyGenerator(Alphanumeric, length)
}
