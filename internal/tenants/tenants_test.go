package tenants

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const validCsv = `Acme,pk_test_a,sk_test_a,pk_live_a,sk_live_a

Globex, pk_test_g, rk_test_g, pk_live_g, rk_live_g
`

func writeFile(t *testing.T, name string, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestRead_Csv(t *testing.T) {
	tenants, err := Read(writeFile(t, "tenants.csv", validCsv))
	require.NoError(t, err)

	assert.Equal(t, []Tenant{
		{
			Name:               "Acme",
			TestPublishableKey: "pk_test_a",
			TestSecretKey:      "sk_test_a",
			LivePublishableKey: "pk_live_a",
			LiveSecretKey:      "sk_live_a",
		},
		{
			Name:               "Globex",
			TestPublishableKey: "pk_test_g",
			TestSecretKey:      "rk_test_g",
			LivePublishableKey: "pk_live_g",
			LiveSecretKey:      "rk_live_g",
		},
	}, tenants)
}

func TestRead_Xlsx(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{
		"Acme", "pk_test_a", "sk_test_a", "pk_live_a", "sk_live_a",
	}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{
		"Initech", "", "sk_test_i", "", "sk_live_i",
	}))

	path := filepath.Join(t.TempDir(), "tenants.xlsx")
	require.NoError(t, f.SaveAs(path))

	tenants, err := Read(path)
	require.NoError(t, err)
	require.Len(t, tenants, 2)
	assert.Equal(t, "Acme", tenants[0].Name)
	assert.Equal(t, "sk_live_a", tenants[0].LiveSecretKey)
	assert.Equal(t, "Initech", tenants[1].Name)
	assert.Equal(t, "", tenants[1].TestPublishableKey)
	assert.Equal(t, "sk_test_i", tenants[1].TestSecretKey)
}

func TestRead_InputErrors(t *testing.T) {
	_, err := Read("")
	assert.ErrorIs(t, err, ErrNoInput)
	assert.EqualError(t, err, "no input file provided")

	missing := filepath.Join(t.TempDir(), "missing.csv")
	_, err = Read(missing)
	assert.EqualError(t, err, missing+" does not exist")
}

func TestRead_InvalidRows(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "short row",
			content: "Acme,pk_test_a,sk_test_a\n",
			wantErr: "row 1: expected 5 fields, found 3",
		},
		{
			name:    "live key in test column",
			content: "Acme,pk_test_a,sk_live_a,pk_live_a,sk_live_a\n",
			wantErr: "TestSecretKey",
		},
		{
			name:    "test key in live column",
			content: "Acme,pk_test_a,sk_test_a,pk_live_a,sk_test_a\n",
			wantErr: "LiveSecretKey",
		},
		{
			name:    "missing name",
			content: ",pk_test_a,sk_test_a,pk_live_a,sk_live_a\n",
			wantErr: "field Name failed required",
		},
		{
			name:    "bad publishable key",
			content: "Acme,sk_test_a,sk_test_a,pk_live_a,sk_live_a\n",
			wantErr: "TestPublishableKey",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(writeFile(t, "tenants.csv", tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_DoesNotLeakKeys(t *testing.T) {
	err := Validate(&Tenant{
		Name:          "Acme",
		TestSecretKey: "sk_live_secret",
		LiveSecretKey: "sk_live_secret",
	})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "sk_live_secret")
}

func TestFromConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	_, err := FromConfig()
	assert.ErrorIs(t, err, ErrNoInput)

	viper.Set("tenants", []map[string]interface{}{
		{
			"name":          "Acme",
			"testSecretKey": "sk_test_a",
			"liveSecretKey": "sk_live_a",
		},
	})

	tenants, err := FromConfig()
	require.NoError(t, err)
	assert.Equal(t, []Tenant{
		{Name: "Acme", TestSecretKey: "sk_test_a", LiveSecretKey: "sk_live_a"},
	}, tenants)

	viper.Set("tenants", []map[string]interface{}{{"name": "Acme"}})

	_, err = FromConfig()
	assert.ErrorContains(t, err, "tenant 1")
}
