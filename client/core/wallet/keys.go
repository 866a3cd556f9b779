package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Account 本地签名账户
type Account struct {
	Address common.Address
	Path    string // keystore 导入时为空
	key     *ecdsa.PrivateKey
}

// DeriveAccounts 从助记词按 m/44'/60'/0'/0/i 派生前 count 个账户
func DeriveAccounts(mnemonic, passphrase string, count uint32) ([]Account, error) {
	if count == 0 {
		return nil, errors.New("account count must be positive")
	}

	seed, err := MnemonicToSeed(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}

	// 主网参数只影响扩展密钥的序列化前缀，不影响派生结果
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}

	accounts := make([]Account, 0, count)
	for _, path := range PathsForAccounts(count) {
		key := master
		for _, idx := range path.ToUint32Array() {
			if key, err = key.Derive(idx); err != nil {
				return nil, fmt.Errorf("derive %s: %w", path, err)
			}
		}

		priv, err := key.ECPrivKey()
		if err != nil {
			return nil, fmt.Errorf("private key %s: %w", path, err)
		}
		ecdsaKey := priv.ToECDSA()

		accounts = append(accounts, Account{
			Address: crypto.PubkeyToAddress(ecdsaKey.PublicKey),
			Path:    path.String(),
			key:     ecdsaKey,
		})
	}
	return accounts, nil
}

// LoadKeystore 解密 keystore JSON 文件
func LoadKeystore(path, password string) (Account, error) {
	//nolint:gosec // G304: 路径来自用户配置
	data, err := os.ReadFile(path)
	if err != nil {
		return Account{}, fmt.Errorf("reading keystore: %w", err)
	}

	key, err := keystore.DecryptKey(data, password)
	if err != nil {
		return Account{}, fmt.Errorf("decrypting keystore: %w", err)
	}
	return Account{Address: key.Address, key: key.PrivateKey}, nil
}

// keystore 加密强度，测试中调低
var scryptN, scryptP = keystore.StandardScryptN, keystore.StandardScryptP

// ExportKeystore 加密写入 dir，返回文件路径
func (a Account) ExportKeystore(dir, password string) (string, error) {
	if a.key == nil {
		return "", errors.New("account has no private key")
	}
	ks := keystore.NewKeyStore(dir, scryptN, scryptP)
	acc, err := ks.ImportECDSA(a.key, password)
	if err != nil {
		return "", fmt.Errorf("writing keystore: %w", err)
	}
	return acc.URL.Path, nil
}
