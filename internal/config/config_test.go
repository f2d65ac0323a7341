package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RESELLER_TIMEOUT", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test,,")

	cfg := Load()

	assert.Equal(t, 30*time.Second, cfg.ResellerTimeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, "Token", cfg.ResellerAuthScheme)
	assert.False(t, cfg.QueueEnabled())
}

func TestLoadTariffDefaultsWhenMissing(t *testing.T) {
	tariff, err := LoadTariff(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.True(t, tariff.ElectricityServiceCharge.Equal(DefaultTariff().ElectricityServiceCharge))
	assert.Equal(t, 5, tariff.PointsFor("data"))
	assert.Equal(t, 0, tariff.PointsFor("wallet_funding"))
}

func TestLoadTariffOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tariff.toml")
	content := `
electricity_service_charge = "100"

[points]
airtime = 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	tariff, err := LoadTariff(path)
	require.NoError(t, err)

	assert.Equal(t, "100", tariff.ElectricityServiceCharge.String())
	assert.Equal(t, 4, tariff.PointsFor("airtime"))
	assert.Equal(t, 5, tariff.PointsFor("data"))
	assert.Equal(t, 100, tariff.PointsBlock)
	assert.Equal(t, "200", tariff.PointsBlockValue.String())
}
