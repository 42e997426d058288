package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func runQuote(t *testing.T, args ...string) (map[string]uint64, error) {
	t.Helper()
	cmd := newQuoteCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		return nil, err
	}
	var got map[string]uint64
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	return got, nil
}

func TestQuoteSwapCommand(t *testing.T) {
	got, err := runQuote(t, "swap", "--amount-in", "1000000", "--reserve-x", "100000000", "--reserve-y", "200000000", "--fee-bps", "30")
	require.NoError(t, err)
	require.Equal(t, uint64(1_974_316), got["amount_out"])
}

func TestQuoteDepositCommand(t *testing.T) {
	got, err := runQuote(t, "deposit", "--amount-x", "100000000", "--amount-y", "200000000")
	require.NoError(t, err)
	require.Equal(t, uint64(141_420_356), got["lp_out"])
}

func TestQuoteWithdrawCommand(t *testing.T) {
	got, err := runQuote(t, "withdraw", "--lp-amount", "70710178",
		"--reserve-x", "100000000", "--reserve-y", "200000000", "--lp-supply", "141420356")
	require.NoError(t, err)
	require.Equal(t, uint64(50_000_000), got["amount_x"])
	require.Equal(t, uint64(100_000_000), got["amount_y"])
}

func TestQuoteRejectsExcessiveFee(t *testing.T) {
	_, err := runQuote(t, "swap", "--amount-in", "1", "--reserve-x", "1", "--reserve-y", "1", "--fee-bps", "10000")
	require.Error(t, err)
	require.Contains(t, err.Error(), "InvalidFee")
}
