package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/purefi/playground-sdk-go/config"
	"github.com/purefi/playground-sdk-go/wallet"
)

var (
	walletDir    string
	walletImport string
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage local signer keystores",
}

var walletNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create (or import with --private-key) an encrypted v3 keystore",
	Long: `Writes a v3 keystore into --dir. The password is read from
PUREFI_KEYSTORE_PASSWORD. Point signer.keystore_path at the printed file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password := os.Getenv(config.EnvKeystorePassword)
		if password == "" {
			return fmt.Errorf("keystore password is required (set %s)", config.EnvKeystorePassword)
		}

		var (
			w   wallet.Wallet
			err error
		)
		if walletImport != "" {
			w, err = wallet.NewWalletFromPrivateKey(walletImport)
		} else {
			w, err = wallet.NewWallet()
		}
		if err != nil {
			return err
		}

		km, err := wallet.NewKeystoreManager(walletDir)
		if err != nil {
			return err
		}
		path, err := km.Save(w, password)
		if err != nil {
			return err
		}
		logger.Info("keystore written", zap.String("address", w.Address().Hex()), zap.String("path", path))
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", w.Address().Hex(), path)
		return nil
	},
}

var walletListCmd = &cobra.Command{
	Use:   "list",
	Short: "List keystore addresses in --dir",
	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := wallet.NewKeystoreManager(walletDir)
		if err != nil {
			return err
		}
		addrs, err := km.List()
		if err != nil {
			return err
		}
		for _, a := range addrs {
			fmt.Fprintln(cmd.OutOrStdout(), a.Hex())
		}
		return nil
	},
}

func init() {
	walletCmd.PersistentFlags().StringVar(&walletDir, "dir", "keystore", "keystore directory")
	walletNewCmd.Flags().StringVar(&walletImport, "private-key", "", "import this hex key instead of generating one")
	walletCmd.AddCommand(walletNewCmd, walletListCmd)
}
