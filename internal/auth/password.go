package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost 是账号密码哈希的 bcrypt 成本。
const PasswordCost = 12

// MaxPasswordBytes 是 bcrypt 能处理的最大输入长度；注册校验按字符计数，多字节密码可能超出。
const MaxPasswordBytes = 72

// ErrPasswordTooLong 表示密码的 UTF-8 字节数超过 bcrypt 上限。
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// HashPassword 使用 bcrypt 生成密码哈希。
func HashPassword(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// CheckPasswordHash 校验密码是否匹配哈希；超长输入直接视为不匹配。
func CheckPasswordHash(password, hash string) bool {
	if len(password) > MaxPasswordBytes || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
