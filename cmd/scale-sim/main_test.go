package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/counting-scale/internal/scale"
)

func TestParseFlags_Defaults(t *testing.T) {
	o, err := parseFlags(nil, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, scale.ProductionConfig{Count: 1000, NominalWeight: 5, TolerancePercent: 2}, o.prod)
	assert.Equal(t, 50, o.reference)
	assert.Equal(t, 200, o.sample)
	assert.Equal(t, 1, o.weighings)
	assert.False(t, o.json)
}

func TestParseFlags_Rejects(t *testing.T) {
	for _, args := range [][]string{
		{"-weighings", "0"},
		{"extra"},
		{"-count", "many"},
		{"-units", "stone"},
		{"-plot", "/etc/hist.png"},
	} {
		_, err := parseFlags(args, io.Discard)
		assert.Error(t, err, "args %v", args)
	}
}

func TestRun_JSONReport(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"-count", "1000", "-reference", "50", "-sample", "200", "-weighings", "3", "-seed", "42", "-json"}, &out, io.Discard)
	require.NoError(t, err)

	var rep report
	require.NoError(t, json.Unmarshal(out.Bytes(), &rep))
	assert.Equal(t, 1000, rep.PopulationSize)
	require.NotNil(t, rep.Calibration)
	assert.Equal(t, 50, rep.Calibration.ReferenceCount)
	assert.InDelta(t, 5.0, rep.Calibration.EstimatedUnitWeight, 0.05)
	require.Len(t, rep.Weighings, 3)
	for _, res := range rep.Weighings {
		assert.Equal(t, 200, res.SampleSize)
		assert.InDelta(t, 200, res.EstimatedCount, 20)
	}
}

func TestRun_SameSeedSameEstimates(t *testing.T) {
	args := []string{"-seed", "9", "-json"}
	var a, b bytes.Buffer
	require.NoError(t, run(args, &a, io.Discard))
	require.NoError(t, run(args, &b, io.Discard))

	var ra, rb report
	require.NoError(t, json.Unmarshal(a.Bytes(), &ra))
	require.NoError(t, json.Unmarshal(b.Bytes(), &rb))
	assert.Equal(t, ra.Calibration.EstimatedUnitWeight, rb.Calibration.EstimatedUnitWeight)
	assert.Equal(t, ra.Weighings, rb.Weighings)
}

func TestRun_TextReportAndPlot(t *testing.T) {
	plotPath := filepath.Join(t.TempDir(), "hist.png")
	var out bytes.Buffer
	require.NoError(t, run([]string{"-count", "300", "-reference", "20", "-sample", "60", "-seed", "3", "-plot", plotPath}, &out, io.Discard))

	text := out.String()
	assert.True(t, strings.HasPrefix(text, "Population "))
	assert.Contains(t, text, "Calibration: 20 reference parts")
	assert.Contains(t, text, "Weighing 1: 60 parts")
	assert.Contains(t, text, "Histogram written to "+plotPath)

	info, err := os.Stat(plotPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRun_TextReportInKilograms(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"-count", "100", "-nominal", "2500", "-tolerance", "0", "-reference", "10", "-sample", "20", "-seed", "5", "-units", "kg"}, &out, io.Discard))

	text := out.String()
	assert.Contains(t, text, "nominal 2.5 kg")
	assert.Contains(t, text, "unit weight 2.50000 kg")
	assert.Contains(t, text, "20 parts weigh 50.0000 kg")
	assert.Contains(t, text, "error 0.00 (0.000%)")
}

func TestRun_ScaleErrors(t *testing.T) {
	err := run([]string{"-count", "10", "-sample", "11", "-reference", "5"}, io.Discard, io.Discard)
	assert.ErrorIs(t, err, scale.ErrSampleSizeOutOfRange)

	for _, args := range [][]string{
		{"-nominal", "0"},
		{"-nominal", "Inf"},
		{"-tolerance", "NaN"},
		{"-count", "2000000"},
	} {
		err = run(args, io.Discard, io.Discard)
		assert.ErrorIs(t, err, scale.ErrInvalidConfiguration, "args %v", args)
	}

	err = run([]string{"-reference", "0"}, io.Discard, io.Discard)
	assert.Error(t, err)
}
