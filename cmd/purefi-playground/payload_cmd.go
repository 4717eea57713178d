package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/purefi/playground-sdk-go/config"
	"github.com/purefi/playground-sdk-go/services/payload"
	"github.com/purefi/playground-sdk-go/types"
)

// payloadFlags payload / sign 共用的表单参数
type payloadFlags struct {
	preset  string
	account string
	chain   string
	sets    []string
}

func (f *payloadFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.preset, "preset", payload.PresetCustom, "preset id (custom, aml, kyc or one from presets_file)")
	cmd.Flags().StringVar(&f.account, "account", "", "connected wallet address")
	cmd.Flags().StringVar(&f.chain, "chain", "1", "chain id (decimal or 0x)")
	cmd.Flags().StringArrayVar(&f.sets, "set", nil, "field=value, repeatable (e.g. --set ruleId=431050)")
}

// session 依次应用 连接钱包 -> 预设 -> 字段 事件
func (f *payloadFlags) session(registry *payload.Registry) (payload.Session, error) {
	chainID, err := config.ParseChainID(f.chain)
	if err != nil {
		return payload.Session{}, err
	}

	events := make([]payload.Event, 0, len(f.sets)+2)
	if f.account != "" {
		events = append(events, payload.ConnectWallet{Address: f.account, ChainID: chainID})
	}
	events = append(events, payload.SelectPreset{ID: f.preset})
	for _, kv := range f.sets {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return payload.Session{}, fmt.Errorf("invalid --set %q, expected field=value", kv)
		}
		events = append(events, payload.SetField{Name: payload.FieldName(strings.TrimSpace(name)), Value: value})
	}

	s := payload.NewSession("cli", cfg.IssuerURL(false))
	for _, ev := range events {
		if s, err = payload.TransitionWith(registry, s, ev); err != nil {
			return payload.Session{}, err
		}
	}
	return s, nil
}

var payloadOpts payloadFlags

var payloadCmd = &cobra.Command{
	Use:   "payload",
	Short: "Derive a Rule V5 payload and print visibility, field errors and data",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices()
		if err != nil {
			return err
		}
		defer svc.Close()

		s, err := payloadOpts.session(svc.Presets)
		if err != nil {
			return err
		}
		return printJSON(cmd, payload.Derive(s))
	},
}

var (
	signOpts      payloadFlags
	signSignerURL string
)

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign the derived payload with the configured key or a custom signer backend",
	Long: `Signs the derived payload as EIP-712 typed data.

With --signer-url the typed data is posted to that backend; otherwise the key
from signer.private_key / signer.keystore_path (or PUREFI_SIGNER_KEY) is used
and --account defaults to its address.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices()
		if err != nil {
			return err
		}
		defer svc.Close()

		if signOpts.account == "" && svc.Wallet != nil {
			signOpts.account = svc.Wallet.Address().Hex()
		}
		s, err := signOpts.session(svc.Presets)
		if err != nil {
			return err
		}
		preview := payload.Derive(s)
		if !preview.Ready {
			if !s.WalletConnected() {
				return fmt.Errorf("payload is not ready: --account is required")
			}
			return fmt.Errorf("payload is not ready: %w", preview.Errors.AsError())
		}

		var signed *types.PureFIRuleV5Payload
		if signSignerURL != "" {
			signed, err = svc.Signer.SignWithBackend(cmd.Context(), signSignerURL, preview.Data)
		} else {
			signed, err = svc.Signer.Sign(cmd.Context(), preview.Data)
		}
		if err != nil {
			return err
		}
		logger.Debug("payload signed", zap.String("ruleId", preview.Data.Payload.RuleID))
		return printJSON(cmd, signed)
	},
}

func init() {
	payloadOpts.register(payloadCmd)
	signOpts.register(signCmd)
	signCmd.Flags().StringVar(&signSignerURL, "signer-url", "", "custom signer backend url")
}
