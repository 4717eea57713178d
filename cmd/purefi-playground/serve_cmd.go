package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/purefi/playground-sdk-go/config"
	"github.com/purefi/playground-sdk-go/server"
	"github.com/purefi/playground-sdk-go/services"
	"github.com/purefi/playground-sdk-go/utils"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the playground HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := serveAddr
		if addr == "" {
			addr = cfg.Server.Addr
		}

		svc, err := newServices()
		if err != nil {
			return err
		}
		defer svc.Close()
		if svc.Wallet != nil {
			logger.Info("custom signer demo enabled at /sign")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return server.New(svc, sdkLogger()).Start(ctx, addr)
	},
}

var chainsProbe bool

// chainStatus --probe 的单链结果
type chainStatus struct {
	block   string
	balance string
}

var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "List supported chains",
	Long: `Lists supported chains with their configured RPC endpoint. With --probe each
configured endpoint is queried for its latest block and, when a signer key is
configured, the signer's native balance.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		chains := config.SupportedChains()
		status := make([]chainStatus, len(chains))

		if chainsProbe {
			svc, err := newServices()
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			// 单链失败不影响其他链，错误写入结果
			status, _ = utils.ParallelExecute(ctx, chains, func(ctx context.Context, c config.Chain) (chainStatus, error) {
				return probeChain(ctx, svc, c), nil
			}, len(chains))
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		header := "ID\tNAME\tSYMBOL\tEXPLORER\tRPC"
		if chainsProbe {
			header += "\tBLOCK\tBALANCE"
		}
		fmt.Fprintln(tw, header)
		for i, c := range chains {
			rpc, err := cfg.RPCEndpoint(c.ID)
			if err != nil {
				rpc = "-"
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s", c.ID, c.Name, c.NativeSymbol, c.ExplorerURL, rpc)
			if chainsProbe {
				fmt.Fprintf(tw, "\t%s\t%s", status[i].block, status[i].balance)
			}
			fmt.Fprintln(tw)
		}
		return tw.Flush()
	},
}

func probeChain(ctx context.Context, svc *services.Services, c config.Chain) chainStatus {
	st := chainStatus{block: "-", balance: "-"}
	if _, err := cfg.RPCEndpoint(c.ID); err != nil {
		return st
	}
	ec, err := svc.EVMClient(c.ID)
	if err != nil {
		st.block = "error"
		return st
	}
	n, err := ec.BlockNumber(ctx)
	if err != nil {
		st.block = "error"
		logger.Sugar().Debugw("probe failed", "chainId", c.ID, "error", err)
		return st
	}
	st.block = fmt.Sprintf("%d", n)

	if svc.Wallet == nil {
		return st
	}
	bal, err := ec.BalanceAt(ctx, svc.Wallet.Address())
	if err != nil {
		return st
	}
	if s, err := utils.FormatUnits(bal, 18); err == nil {
		st.balance = s + " " + c.NativeSymbol
	}
	return st
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	chainsCmd.Flags().BoolVar(&chainsProbe, "probe", false, "query each configured endpoint")
}
