package quality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRuleSetsRegister(t *testing.T) {
	registry, err := NewRuleRegistry(DefaultRuleSets()...)
	require.NoError(t, err)

	for _, dt := range []DataType{DataTypeStockPrice, DataTypeCryptoPrice, DataTypeOptionsData} {
		rs, ok := registry.GetRuleSet(dt)
		require.True(t, ok, "missing rule set for %s", dt)
		assert.Equal(t, dt, rs.DataType)
		assert.NotEmpty(t, rs.RequiredFields)
		assert.Greater(t, rs.MaxAge, time.Duration(0))
	}
	assert.Len(t, registry.DataTypes(), 3)
}

func TestRuleRegistryLaterSetsOverride(t *testing.T) {
	custom := ValidationRuleSet{
		DataType:       DataTypeStockPrice,
		RequiredFields: []string{"symbol", "timestamp"},
		MaxAge:         time.Minute,
	}
	registry, err := NewRuleRegistry(append(DefaultRuleSets(), custom)...)
	require.NoError(t, err)

	rs, ok := registry.GetRuleSet(DataTypeStockPrice)
	require.True(t, ok)
	assert.Equal(t, time.Minute, rs.MaxAge)
	assert.Equal(t, []string{"symbol", "timestamp"}, rs.RequiredFields)
}

func TestRuleRegistryRejectsEmptyDataType(t *testing.T) {
	_, err := NewRuleRegistry(ValidationRuleSet{})
	assert.Error(t, err)
}

func TestRuleRegistryRejectsBadPattern(t *testing.T) {
	_, err := NewRuleRegistry(ValidationRuleSet{
		DataType: "broken",
		Patterns: map[string]string{"symbol": "(["},
	})
	assert.Error(t, err)
}

func TestDetectDataType(t *testing.T) {
	cases := []struct {
		name   string
		symbol string
		record Record
		want   DataType
	}{
		{"plain equity", "AAPL", Record{"price": 187.42}, DataTypeStockPrice},
		{"hyphenated pair", "BTC-USD", Record{"price": 64200.0}, DataTypeCryptoPrice},
		{"strike and expiration", "AAPL240621C", Record{"strike": 190.0, "expiration": "2024-06-21"}, DataTypeOptionsData},
		{"strike and expiry", "AAPL240621C", Record{"strike": 190.0, "expiry": "2024-06-21"}, DataTypeOptionsData},
		{"strike alone is not options", "AAPL", Record{"strike": 190.0}, DataTypeStockPrice},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DetectDataType(tc.symbol, tc.record))
		})
	}
}
