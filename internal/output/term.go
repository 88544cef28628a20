package output

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// IsInteractive 判断标准输入和标准输出是否都是终端，非终端时不能弹出交互式提示。
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// ShouldColor 判断 stdout 是否适合彩色输出。
func ShouldColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ReadSecret 从终端读取不回显的输入。
func ReadSecret(label string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	value, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read secret input: %w", err)
	}
	secret := strings.TrimSpace(string(value))
	if secret == "" {
		return "", fmt.Errorf("value cannot be empty")
	}
	return secret, nil
}

// MaskToken 只保留令牌的首尾各 4 个字符。
func MaskToken(token string) string {
	if len(token) <= 8 {
		return "********"
	}
	return token[:4] + "****" + token[len(token)-4:]
}
