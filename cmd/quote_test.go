//go:build !integration

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotelane/exchange-cli/internal/carrier"
	"github.com/quotelane/exchange-cli/internal/model"
	"github.com/quotelane/exchange-cli/internal/rating"
)

func TestFormatQuotes(t *testing.T) {
	quotes := []model.Quote{
		{
			CarrierName:       "Meridian Mutual",
			CarrierRating:     4.7,
			MonthlyPremium:    103,
			SemiannualPremium: 632,
			AnnualPremium:     1240,
			TotalDiscount:     17,
			TotalSurcharge:    0,
		},
		{
			CarrierName:       "Pinnacle Auto",
			CarrierRating:     4.5,
			MonthlyPremium:    128,
			SemiannualPremium: 783,
			AnnualPremium:     1535,
			TotalDiscount:     10,
			TotalSurcharge:    28,
		},
	}

	var buf bytes.Buffer
	formatQuotes(&buf, quotes)

	output := buf.String()
	assert.Contains(t, output, "CARRIER")
	assert.Contains(t, output, "MONTHLY")
	assert.Contains(t, output, "Meridian Mutual")
	assert.Contains(t, output, "4.7")
	// Thousands separators on whole-dollar premiums.
	assert.Contains(t, output, "$1,240")
	assert.Contains(t, output, "$1,535")
	assert.Contains(t, output, "-17%")
	assert.Contains(t, output, "+28%")
}

func TestReadProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"age": 34,
		"vehicle_model": "2021 Honda Accord",
		"coverage_type": "full",
		"state": "OH"
	}`), 0644))

	profile, err := readProfile(path)
	require.NoError(t, err)
	assert.Equal(t, 34, profile.Age)
	assert.Equal(t, "2021 Honda Accord", profile.VehicleModel)
	assert.Equal(t, model.CoverageFull, profile.CoverageType)
	assert.Equal(t, "OH", profile.State)
}

func TestReadProfile_BadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := readProfile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse profile")
}

func TestQuoteBatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.jsonl")
	lines := []string{
		`{"age":34,"vehicle_model":"2021 Honda Accord","coverage_type":"full"}`,
		`not json`,
		`{"age":52,"vehicle_model":"2019 Toyota RAV4","coverage_type":"liability"}`,
	}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))

	engine := rating.New(carrier.Default())
	var buf bytes.Buffer
	require.NoError(t, quoteBatch(context.Background(), engine, path, 2, &buf))

	byLine := map[int]batchResult{}
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var res batchResult
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &res))
		byLine[res.Line] = res
	}
	require.NoError(t, scanner.Err())
	require.Len(t, byLine, 3)

	assert.NotEmpty(t, byLine[1].Quotes)
	assert.Empty(t, byLine[1].Error)
	assert.NotEmpty(t, byLine[2].Error)
	assert.NotEmpty(t, byLine[3].Quotes)
}
