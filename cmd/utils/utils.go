package utils

import (
	"fmt"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/term"
)

const (
	ConfigFileName  = "inventory.yaml"
	ConfigKeyName   = "secret.key"
	SecretsFileName = "secrets.yaml"
)

// ParseAddr 解析 user@host:port 格式的字符串
func ParseAddr(input string) (string, string, uint16) {
	var user, host string = "", ""
	var port uint16 = 0
	if atIndex := strings.Index(input, ":"); atIndex != -1 {
		port = ParsePort(input[atIndex+1:])
		input = input[:atIndex]
	}
	if atIndex := strings.Index(input, "@"); atIndex != -1 {
		user = strings.TrimSpace(input[:atIndex])
		input = input[atIndex+1:]
	}
	host = strings.TrimSpace(input)

	return user, host, port
}

// ParsePort 解析端口字符串
// 如果输入为空字符串，则返回0
func ParsePort(input string) uint16 {
	if input == "" {
		return 0
	}
	port64, err := strconv.ParseUint(input, 10, 16)
	if err != nil {
		return 0
	}
	return uint16(port64)
}

func GetCurrentUser() string {
	currentUser, err := user.Current()
	if err != nil {
		return ""
	}
	return currentUser.Username
}

// GetConfigFilePath 返回清单文件和加密密钥的路径 (~/.sstack 下)
func GetConfigFilePath() (configPath, keyPath string) {
	user, err := user.Current()
	if err != nil {
		return "", ""
	}
	return filepath.Join(user.HomeDir, ".sstack", ConfigFileName), filepath.Join(user.HomeDir, ".sstack", ConfigKeyName)
}

// GetSecretsFilePath 返回本地秘密文件的路径
func GetSecretsFilePath() string {
	user, err := user.Current()
	if err != nil {
		return ""
	}
	return filepath.Join(user.HomeDir, ".sstack", SecretsFileName)
}

// ReadPasswordFromTerminal 从终端安全地读取密码
func ReadPasswordFromTerminal(prompt string) (string, error) {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // 打印换行符，因为 ReadPassword 不会打印换行符
	if err != nil {
		return "", err
	}
	return string(password), nil
}

// ConfirmFromTerminal 要求操作员输入 yes 明确确认
// 任何其他输入 (包括直接回车) 都视为拒绝
func ConfirmFromTerminal(prompt string) (bool, error) {
	fmt.Print(prompt)
	var answer string
	if _, err := fmt.Scanln(&answer); err != nil {
		// 直接回车时 Scanln 返回错误，按拒绝处理
		return false, nil
	}
	return strings.EqualFold(strings.TrimSpace(answer), "yes"), nil
}
