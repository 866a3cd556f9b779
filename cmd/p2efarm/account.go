package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/weisyn/p2efarm/client/core/wallet"
)

var (
	accountWords      int
	accountPassphrase string
	accountCount      uint32
	accountKeystore   string
	accountPassword   string
)

// accountCmd 本地钱包账户
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "本地钱包账户管理",
}

// accountNewCmd 生成助记词
var accountNewCmd = &cobra.Command{
	Use:   "new",
	Short: "生成助记词并显示派生地址",
	Long: `生成 BIP39 助记词，按 m/44'/60'/0'/0/i 派生地址。

把助记词写入配置 wallet.mnemonic（或环境变量 P2EFARM_WALLET_MNEMONIC）
并设置 wallet.mode=local 即可使用本地钱包。
指定 --keystore 时同时把第一个账户加密导出为 keystore 文件。

示例：
  p2efarm account new
  p2efarm account new --words 24 --count 3
  p2efarm account new --keystore ~/.p2efarm/keystore`,
	RunE: func(cmd *cobra.Command, args []string) error {
		strength := wallet.Mnemonic12Words
		switch accountWords {
		case 12:
		case 24:
			strength = wallet.Mnemonic24Words
		default:
			return fmt.Errorf("无效的助记词数量: %d，支持 12, 24", accountWords)
		}

		mnemonic, err := wallet.GenerateMnemonic(strength)
		if err != nil {
			return fmt.Errorf("生成助记词失败: %w", err)
		}
		accounts, err := wallet.DeriveAccounts(mnemonic, accountPassphrase, accountCount)
		if err != nil {
			return err
		}

		result := newAccountResult{Mnemonic: mnemonic}
		for _, a := range accounts {
			result.Accounts = append(result.Accounts, derivedAccount{Path: a.Path, Address: a.Address.Hex()})
		}

		if accountKeystore != "" {
			password := accountPassword
			if password == "" {
				if password, err = promptNewPassword(); err != nil {
					return err
				}
			}
			if result.Keystore, err = accounts[0].ExportKeystore(accountKeystore, password); err != nil {
				return err
			}
		}

		formatter.PrintWarning("请务必安全备份助记词，丢失将无法恢复账户")
		return formatter.Print(result)
	},
}

type derivedAccount struct {
	Path    string `json:"path"`
	Address string `json:"address"`
}

type newAccountResult struct {
	Mnemonic string           `json:"mnemonic"`
	Accounts []derivedAccount `json:"accounts"`
	Keystore string           `json:"keystore,omitempty"`
}

// String text 格式输出
func (r newAccountResult) String() string {
	s := "助记词: " + r.Mnemonic
	for _, a := range r.Accounts {
		s += fmt.Sprintf("\n%s  %s", a.Path, a.Address)
	}
	if r.Keystore != "" {
		s += "\nkeystore: " + r.Keystore
	}
	return s
}

// promptNewPassword 两次输入确认
func promptNewPassword() (string, error) {
	password, err := promptPassword("请输入 keystore 密码")
	if err != nil {
		return "", err
	}
	confirm, err := promptPassword("请确认密码")
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", fmt.Errorf("密码不匹配")
	}
	return password, nil
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt+": ")
	bytePassword, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("读取密码失败: %w", err)
	}
	fmt.Fprintln(os.Stderr)
	return string(bytePassword), nil
}

func init() {
	accountNewCmd.Flags().IntVar(&accountWords, "words", 12, "助记词数量: 12|24")
	accountNewCmd.Flags().StringVar(&accountPassphrase, "passphrase", "", "BIP39 附加口令")
	accountNewCmd.Flags().Uint32Var(&accountCount, "count", 1, "派生账户数量")
	accountNewCmd.Flags().StringVar(&accountKeystore, "keystore", "", "导出第一个账户到该 keystore 目录")
	accountNewCmd.Flags().StringVar(&accountPassword, "password", "", "keystore 密码 (默认交互输入)")

	accountCmd.AddCommand(accountNewCmd)
}
