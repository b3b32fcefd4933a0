// Package tenants reads the businesses to sync, one row per business:
// friendly name, test publishable key, test secret key, live publishable key,
// live secret key.
package tenants

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/xuri/excelize/v2"
)

var ErrNoInput = errors.New("no input file provided")

type Tenant struct {
	Name               string `mapstructure:"name" validate:"required"`
	TestPublishableKey string `mapstructure:"testPublishableKey" validate:"omitempty,startswith=pk_test_"`
	TestSecretKey      string `mapstructure:"testSecretKey" validate:"required,startswith=sk_test_|startswith=rk_test_"`
	LivePublishableKey string `mapstructure:"livePublishableKey" validate:"omitempty,startswith=pk_live_"`
	LiveSecretKey      string `mapstructure:"liveSecretKey" validate:"required,startswith=sk_live_|startswith=rk_live_"`
}

const rowFields = 5

var validate = validator.New()

// Read loads and validates tenants from a CSV or XLSX file.
func Read(path string) ([]Tenant, error) {
	if path == "" {
		return nil, ErrNoInput
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s does not exist", path)
		}
		return nil, err
	}

	var (
		rows [][]string
		err  error
	)

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		rows, err = readXlsx(path)
	} else {
		rows, err = readCsv(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return FromRows(rows)
}

// FromConfig loads and validates tenants from the "tenants" config key.
func FromConfig() ([]Tenant, error) {
	if !viper.IsSet("tenants") {
		return nil, ErrNoInput
	}

	tenants := []Tenant{}

	if err := viper.UnmarshalKey("tenants", &tenants); err != nil {
		return nil, fmt.Errorf("invalid tenants config: %w", err)
	}

	if len(tenants) == 0 {
		return nil, ErrNoInput
	}

	for index := range tenants {
		if err := Validate(&tenants[index]); err != nil {
			return nil, fmt.Errorf("tenant %d: %w", index+1, err)
		}
	}

	return tenants, nil
}

func FromRows(rows [][]string) ([]Tenant, error) {
	tenants := []Tenant{}

	for index, row := range rows {
		if isBlank(row) {
			continue
		}

		if len(row) < rowFields {
			return nil, fmt.Errorf(
				"row %d: expected %d fields, found %d",
				index+1,
				rowFields,
				len(row),
			)
		}

		tenant := Tenant{
			Name:               strings.TrimSpace(row[0]),
			TestPublishableKey: strings.TrimSpace(row[1]),
			TestSecretKey:      strings.TrimSpace(row[2]),
			LivePublishableKey: strings.TrimSpace(row[3]),
			LiveSecretKey:      strings.TrimSpace(row[4]),
		}

		if err := Validate(&tenant); err != nil {
			return nil, fmt.Errorf("row %d: %w", index+1, err)
		}

		tenants = append(tenants, tenant)
	}

	return tenants, nil
}

// Validate reports the first invalid field without echoing key material.
func Validate(tenant *Tenant) error {
	err := validate.Struct(tenant)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fe := validationErrors[0]
		return fmt.Errorf(
			"invalid tenant %q: field %s failed %s",
			tenant.Name,
			fe.Field(),
			fe.Tag(),
		)
	}

	return err
}

func readCsv(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	rows := [][]string{}

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func readXlsx(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	return f.GetRows(f.GetSheetName(0))
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}

	return true
}
