package utils

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// CodeLength 邀请码固定长度
const CodeLength = 10

// CodeAlphabet 邀请码字符集，去掉了容易混淆的字符：0, O, I, 1
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateInviteCode 生成 10 位随机邀请码
// 邀请码直接决定注册权限，必须使用密码学强度的随机源
func GenerateInviteCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("读取随机源失败: %w", err)
	}
	code := make([]byte, CodeLength)
	for i, b := range buf {
		// 字符集长度 32 整除 256，取模不会引入偏差
		code[i] = CodeAlphabet[int(b)%len(CodeAlphabet)]
	}
	return string(code), nil
}

// IsValidCode 检查规范化后的邀请码是否符合格式
func IsValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(CodeAlphabet, rune(code[i])) {
			return false
		}
	}
	return true
}

// NormalizeCode 规范化邀请码输入（去空白、转大写）
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeRootDomain 规范化根域名（去空白、转小写）
func NormalizeRootDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}
