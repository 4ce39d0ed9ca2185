package main

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadfunnel/pkg/nectar"
	sfpkg "github.com/sells-group/leadfunnel/pkg/salesforce"
)

// setFlags sets flags on cmd and restores their defaults when t ends.
func setFlags(t *testing.T, cmd *cobra.Command, values map[string]string) {
	t.Helper()
	for name, v := range values {
		flag := cmd.Flags().Lookup(name)
		require.NotNil(t, flag, name)
		def := flag.DefValue
		require.NoError(t, cmd.Flags().Set(name, v))
		t.Cleanup(func() {
			_ = cmd.Flags().Set(name, def)
			flag.Changed = false
		})
	}
}

func TestListParams_Defaults(t *testing.T) {
	p, err := listParams(opportunitiesCmd)
	require.NoError(t, err)
	assert.Equal(t, 50, p.DisplayLength)
	assert.Nil(t, p.Status)
	assert.Empty(t, p.DataInicio)
}

func TestListParams_Flags(t *testing.T) {
	setFlags(t, opportunitiesCmd, map[string]string{
		"page":   "2",
		"status": "0",
		"name":   "Frota",
		"from":   "2025-01-01",
		"to":     "2025-01-31",
	})

	p, err := listParams(opportunitiesCmd)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Page)
	require.NotNil(t, p.Status)
	assert.Equal(t, 0, *p.Status)
	assert.Equal(t, "Frota", p.Nome)
	assert.Equal(t, "2025-01-01", p.DataInicio)
	assert.Equal(t, "2025-01-31", p.DataFim)
}

func TestListParams_BadDate(t *testing.T) {
	setFlags(t, opportunitiesCmd, map[string]string{"updated-from": "01/02/2025"})

	_, err := listParams(opportunitiesCmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--updated-from")
}

func TestFormatNectarOpportunities(t *testing.T) {
	mensal := 1500.0
	avulso := 250000.0
	opps := []nectar.Opportunity{
		{ID: 1, Nome: "Frota A", Status: 0, Probabilidade: 40, ValorMensal: &mensal},
		{ID: 2, Nome: "Caminhão FH", Status: 1, Probabilidade: 90, ValorAvulso: &avulso},
		{ID: 3, Nome: "Sem valor"},
	}

	var buf bytes.Buffer
	formatNectarOpportunities(&buf, opps)

	out := buf.String()
	assert.Contains(t, out, "Frota A")
	assert.Contains(t, out, "1500.00/mo")
	assert.Contains(t, out, "250000.00")
	assert.Contains(t, out, "90%")
	assert.Contains(t, out, "-")
}

func TestFormatSalesforceOpportunities(t *testing.T) {
	var buf bytes.Buffer
	formatSalesforceOpportunities(&buf, []sfpkg.Opportunity{
		{ID: "006A", Name: "Frota", StageName: "Prospecting", CloseDate: "2025-04-30", Amount: 1200},
	})

	out := buf.String()
	assert.Contains(t, out, "006A")
	assert.Contains(t, out, "Prospecting")
	assert.Contains(t, out, "1200.00")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "Caminhã...", truncate("Caminhão grande", 10))
}
