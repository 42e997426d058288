package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"lpEngine/internal/amm"
	"lpEngine/internal/model"
)

func newQuoteCmd() *cobra.Command {
	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Price an operation against given reserves without touching state",
	}

	depositCmd := &cobra.Command{
		Use:   "deposit",
		Short: "Quote LP units minted by a deposit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()
			amountX, _ := f.GetUint64("amount-x")
			amountY, _ := f.GetUint64("amount-y")
			state := reservesFromFlags(cmd)
			lp, err := amm.QuoteDeposit(state, amountX, amountY)
			if err != nil {
				return quoteError(err)
			}
			return printJSON(cmd, map[string]uint64{"lp_out": lp})
		},
	}
	depositCmd.Flags().Uint64("amount-x", 0, "token x deposited")
	depositCmd.Flags().Uint64("amount-y", 0, "token y deposited")

	withdrawCmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Quote tokens returned for burning LP units",
		RunE: func(cmd *cobra.Command, _ []string) error {
			lpAmount, _ := cmd.Flags().GetUint64("lp-amount")
			state := reservesFromFlags(cmd)
			x, y, err := amm.QuoteWithdraw(lpAmount, state.Reserves.X, state.Reserves.Y, state.LPSupply)
			if err != nil {
				return quoteError(err)
			}
			return printJSON(cmd, map[string]uint64{"amount_x": x, "amount_y": y})
		},
	}
	withdrawCmd.Flags().Uint64("lp-amount", 0, "LP units burned")

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Quote the output of a swap",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()
			amountIn, _ := f.GetUint64("amount-in")
			feeBps, _ := f.GetUint16("fee-bps")
			xToY, _ := f.GetBool("x-to-y")
			if err := amm.ValidateFee(feeBps); err != nil {
				return quoteError(err)
			}
			state := reservesFromFlags(cmd)
			reserveIn, reserveOut := state.Reserves.Oriented(xToY)
			out, err := amm.QuoteSwap(amountIn, reserveIn, reserveOut, feeBps)
			if err != nil {
				return quoteError(err)
			}
			return printJSON(cmd, map[string]uint64{"amount_out": out})
		},
	}
	swapCmd.Flags().Uint64("amount-in", 0, "input amount")
	swapCmd.Flags().Uint16("fee-bps", 30, "pool fee in basis points")
	swapCmd.Flags().Bool("x-to-y", true, "swap direction")

	for _, c := range []*cobra.Command{depositCmd, withdrawCmd, swapCmd} {
		c.Flags().Uint64("reserve-x", 0, "pool reserve of token x")
		c.Flags().Uint64("reserve-y", 0, "pool reserve of token y")
		c.Flags().Uint64("lp-supply", 0, "outstanding LP units")
		quoteCmd.AddCommand(c)
	}
	return quoteCmd
}

func reservesFromFlags(cmd *cobra.Command) model.PoolState {
	f := cmd.Flags()
	x, _ := f.GetUint64("reserve-x")
	y, _ := f.GetUint64("reserve-y")
	supply, _ := f.GetUint64("lp-supply")
	return model.PoolState{Reserves: model.Reserves{X: x, Y: y}, LPSupply: supply}
}

func quoteError(err error) error {
	return fmt.Errorf("%s (code %d): %w", amm.Kind(err), amm.Code(err), err)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
