package wallet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveAccounts_KnownVectors(t *testing.T) {
	accounts, err := DeriveAccounts(testMnemonic, "", 2)
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), accounts[0].Address)
	assert.Equal(t, "m/44'/60'/0'/0/0", accounts[0].Path)
	assert.Equal(t, common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8"), accounts[1].Address)
	assert.Equal(t, accounts[1].Address, crypto.PubkeyToAddress(accounts[1].key.PublicKey))
}

func TestDeriveAccounts_Errors(t *testing.T) {
	_, err := DeriveAccounts(testMnemonic, "", 0)
	assert.Error(t, err)

	_, err = DeriveAccounts("not a mnemonic", "", 1)
	assert.ErrorIs(t, err, ErrInvalidMnemonic)
}

func TestLoadKeystore(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	id := &keystore.Key{
		Id:         uuid.New(),
		Address:    crypto.PubkeyToAddress(key.PublicKey),
		PrivateKey: key,
	}

	data, err := keystore.EncryptKey(id, "hunter2", keystore.LightScryptN, keystore.LightScryptP)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, data, 0600))

	acct, err := LoadKeystore(path, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, id.Address, acct.Address)
	assert.Empty(t, acct.Path)

	_, err = LoadKeystore(path, "wrong")
	assert.Error(t, err)

	_, err = LoadKeystore(filepath.Join(t.TempDir(), "missing.json"), "x")
	assert.Error(t, err)
}

func TestExportKeystore_RoundTrip(t *testing.T) {
	scryptN, scryptP = keystore.LightScryptN, keystore.LightScryptP
	defer func() { scryptN, scryptP = keystore.StandardScryptN, keystore.StandardScryptP }()

	accounts, err := DeriveAccounts(testMnemonic, "", 1)
	require.NoError(t, err)

	path, err := accounts[0].ExportKeystore(t.TempDir(), "hunter2")
	require.NoError(t, err)

	loaded, err := LoadKeystore(path, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, accounts[0].Address, loaded.Address)

	_, err = Account{Address: accounts[0].Address}.ExportKeystore(t.TempDir(), "x")
	assert.Error(t, err)
}
