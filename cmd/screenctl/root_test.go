package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommandWithFakeProviders(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"run", "--fake", "--symbols", "aapl,nvda,tsla", "--rejected"})
	require.NoError(t, cmd.Execute())

	var got runOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.NotEmpty(t, got.RunID)
	assert.Equal(t, 3, got.Evaluated)
	assert.Equal(t, 3, len(got.TopTier)+len(got.Emerging)+len(got.Rejected))
	for _, o := range got.Rejected {
		assert.NotEmpty(t, o.Reason)
	}
}

func TestRunCommandCompactOutput(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"run", "--fake", "--symbols", "AAPL", "--compact"})
	require.NoError(t, cmd.Execute())
	assert.NotContains(t, out.String(), "\n  ")
}

func TestRunCommandWithoutProviderKey(t *testing.T) {
	t.Setenv("FINNHUB_API_KEY", "")
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--symbols", "AAPL"})
	assert.Error(t, cmd.Execute())
}

func TestRunCommandPrintsFlatRows(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"run", "--fake", "--symbols", "AAPL,MSFT,NVDA,TSLA,AMD,META", "--rejected", "--compact"})
	require.NoError(t, cmd.Execute())

	var doc struct {
		Evaluated int              `json:"evaluated"`
		TopTier   []map[string]any `json:"top_tier_stocks"`
		Emerging  []map[string]any `json:"emerging_momentum_stocks"`
		Rejected  []map[string]any `json:"rejected"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Contains(t, out.String(), `"top_tier_stocks":`)
	assert.Contains(t, out.String(), `"emerging_momentum_stocks":`)

	rows := append(append(append([]map[string]any{}, doc.TopTier...), doc.Emerging...), doc.Rejected...)
	require.Len(t, rows, doc.Evaluated)
	for _, row := range rows {
		assert.Contains(t, row, "symbol")
		assert.Contains(t, row, "perf_1m_pct")
		assert.Contains(t, row, "company_name")
		assert.NotContains(t, row, "fundamentals")
		assert.NotContains(t, row, "indicators")
	}
}
