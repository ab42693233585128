package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderFormats(t *testing.T) {
	payload := map[string]int{"emergency_count": 2}

	var js bytes.Buffer
	require.NoError(t, render(&js, "json", payload))
	assert.JSONEq(t, `{"emergency_count":2}`, js.String())

	var ym bytes.Buffer
	require.NoError(t, render(&ym, "yaml", payload))
	assert.Equal(t, "emergency_count: 2\n", ym.String())

	assert.Error(t, render(&bytes.Buffer{}, "xml", payload))
}

func TestParseOptionalDate(t *testing.T) {
	d, err := parseOptionalDate("")
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = parseOptionalDate("2025-03-28")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC), *d)

	_, err = parseOptionalDate("28/03/2025")
	assert.Error(t, err)
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	names := make([]string, 0)
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	assert.ElementsMatch(t, []string{"meeting", "tier3", "cico-review", "business-days", "export-cico"}, names)
}

func TestBusinessDayLabels(t *testing.T) {
	labels := businessDayLabels([]time.Time{time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)})
	assert.Equal(t, []string{"2025-03-04"}, labels)
}
