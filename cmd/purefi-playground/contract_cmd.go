package main

import (
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/spf13/cobra"

	"github.com/purefi/playground-sdk-go/config"
	"github.com/purefi/playground-sdk-go/services/contract"
)

var contractCmd = &cobra.Command{
	Use:   "contract",
	Short: "Inspect and call contracts that accept a PureFi package",
}

var contractABIFile string

func loadABI() (*abi.ABI, error) {
	if contractABIFile == "" {
		return contract.DemoABI(), nil
	}
	data, err := os.ReadFile(contractABIFile)
	if err != nil {
		return nil, fmt.Errorf("read abi file: %w", err)
	}
	return contract.ParseABI(string(data))
}

var contractMethodsCmd = &cobra.Command{
	Use:   "methods",
	Short: "List non-view methods as name (selector)",
	RunE: func(cmd *cobra.Command, args []string) error {
		parsed, err := loadABI()
		if err != nil {
			return err
		}
		for _, m := range contract.MethodOptions(parsed) {
			fmt.Fprintln(cmd.OutOrStdout(), m.Label)
			for _, in := range m.Inputs {
				fmt.Fprintf(cmd.OutOrStdout(), "    %s %s\n", in.Type, in.Name)
			}
		}
		return nil
	},
}

var (
	writeChain   string
	writeAddress string
	writeMethod  string
	writeArgs    []string
	writeValue   string
	writeWait    bool
)

var contractWriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Sign and send a contract call with the configured key",
	Example: `  purefi-playground contract write --chain 137 \
    --address 0xd9f7c12906af9fd2264967fc7d4faa8a08d09dfa \
    --method whitelist --arg 0x<package> --wait`,
	RunE: func(cmd *cobra.Command, args []string) error {
		chainID, err := config.ParseChainID(writeChain)
		if err != nil {
			return err
		}
		parsed, err := loadABI()
		if err != nil {
			return err
		}
		var value *big.Int
		if writeValue != "" {
			var ok bool
			if value, ok = new(big.Int).SetString(writeValue, 10); !ok {
				return fmt.Errorf("invalid --value %q (wei)", writeValue)
			}
		}

		svc, err := newServices()
		if err != nil {
			return err
		}
		defer svc.Close()
		if svc.Wallet == nil {
			return fmt.Errorf("signer key is required (signer.private_key, signer.keystore_path or %s)", config.EnvSignerKey)
		}

		cs, err := svc.Contract(chainID)
		if err != nil {
			return err
		}
		res, err := cs.Write(cmd.Context(), &contract.WriteRequest{
			ContractAddress: writeAddress,
			ABI:             parsed,
			Method:          writeMethod,
			Args:            writeArgs,
			Value:           value,
		})
		if err != nil {
			return err
		}
		if !writeWait {
			return printJSON(cmd, res)
		}

		receipt, err := cs.WaitForReceipt(cmd.Context(), res.TxHash, nil)
		if err != nil {
			return err
		}
		if err := printJSON(cmd, map[string]interface{}{"transaction": res, "receipt": receipt}); err != nil {
			return err
		}
		if !receipt.Succeeded() {
			return fmt.Errorf("transaction %s reverted", res.TxHash.Hex())
		}
		return nil
	},
}

func init() {
	contractCmd.PersistentFlags().StringVar(&contractABIFile, "abi-file", "", "contract JSON ABI (default: PureFi demo contract)")

	contractWriteCmd.Flags().StringVar(&writeChain, "chain", "1", "chain id")
	contractWriteCmd.Flags().StringVar(&writeAddress, "address", "", "contract address")
	contractWriteCmd.Flags().StringVar(&writeMethod, "method", "", "method name or 0x selector")
	contractWriteCmd.Flags().StringArrayVar(&writeArgs, "arg", nil, "method argument, repeatable, in ABI order")
	contractWriteCmd.Flags().StringVar(&writeValue, "value", "", "native value in wei")
	contractWriteCmd.Flags().BoolVar(&writeWait, "wait", false, "wait for the receipt")
	_ = contractWriteCmd.MarkFlagRequired("address")
	_ = contractWriteCmd.MarkFlagRequired("method")

	contractCmd.AddCommand(contractMethodsCmd, contractWriteCmd)
}
