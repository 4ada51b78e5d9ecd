package cmd

import (
	"context"
	"fmt"

	cmdutils "example.com/StealthStack/cmd/utils"
	"example.com/StealthStack/pkg/secrets"
	"github.com/spf13/cobra"
)

func NewCmdSecret() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "管理部署用的秘密 (本地加密文件或 Vault)",
		Long: `管理部署流程引用的秘密, 例如私钥密码或 sudo 密码。
默认存在本地加密文件里; 设置了 VAULT_ADDR 时改用 HashiCorp Vault。
清单里的密码字段写成 secret:<name> 即可引用这里的条目, 连接时自动解析。`,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	cmd.AddCommand(NewCmdSecretSet())
	cmd.AddCommand(NewCmdSecretGet())
	cmd.AddCommand(NewCmdSecretDelete())

	return cmd
}

func openSecretStore() (secrets.Store, error) {
	_, keyPath := cmdutils.GetConfigFilePath()
	return secrets.NewFromEnv(keyPath, cmdutils.GetSecretsFilePath())
}

func NewCmdSecretSet() *cobra.Command {
	return &cobra.Command{
		Use:   "set [name]",
		Short: "写入一个秘密 (值从终端读取, 不出现在命令行历史)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSecretStore()
			if err != nil {
				return err
			}
			value, err := cmdutils.ReadPasswordFromTerminal(fmt.Sprintf("请输入 %s 的值: ", args[0]))
			if err != nil {
				return err
			}
			if err := store.Set(context.Background(), args[0], value); err != nil {
				return err
			}
			fmt.Printf("已保存秘密: %s\n", args[0])
			return nil
		},
	}
}

func NewCmdSecretGet() *cobra.Command {
	return &cobra.Command{
		Use:   "get [name]",
		Short: "读取一个秘密并打印到标准输出",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSecretStore()
			if err != nil {
				return err
			}
			value, err := store.Get(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(value)
			return nil
		},
	}
}

func NewCmdSecretDelete() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [name]",
		Short: "删除一个秘密",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSecretStore()
			if err != nil {
				return err
			}
			if err := store.Delete(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("已删除秘密: %s\n", args[0])
			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(NewCmdSecret())
}
