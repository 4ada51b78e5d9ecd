package models

// Identity 定义认证信息
type Identity struct {
	User       string `yaml:"user"`
	KeyPath    string `yaml:"key_path,omitempty"`
	Passphrase string `yaml:"passphrase,omitempty"` // 私钥密码
	Password   string `yaml:"password,omitempty"`   // 登录密码
	AuthType   string `yaml:"auth_type"`            // "key", "password"
}

// Host 定义网络连接信息
type Host struct {
	Alias   []string `yaml:"alias,omitempty"`
	Address string   `yaml:"address"` // IP 或 域名
	Port    uint16   `yaml:"port"`
}

// Node 是部署操作的最小单元，聚合了 Host 和 Identity
// 一次操作只会触达角色标签匹配的节点
type Node struct {
	Alias []string `yaml:"alias,omitempty"`
	Tags  []string `yaml:"tags,omitempty"` // 角色标签，如 "webservers"

	// 引用解耦
	HostRef     string `yaml:"host_ref"`
	IdentityRef string `yaml:"identity_ref"`

	// 高级网络配置
	ProxyJump string `yaml:"proxy_jump,omitempty"` // 指向另一个 Node 的 Name

	// 提权配置
	SudoMode string `yaml:"sudo_mode"` // "none", "sudo"
	SudoPwd  string `yaml:"sudo_pwd,omitempty"`

	// 节点级变量，渲染栈配置时覆盖内置默认值
	// 优先级：命令行 -o 覆盖 > 节点 Vars > 内置默认值
	Vars map[string]string `yaml:"vars,omitempty"`
}

// HasTag 判断节点是否带有指定角色标签
func (n Node) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// RoleWebserver 是部署/移除操作的目标角色
const RoleWebserver = "webservers"
