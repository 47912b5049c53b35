package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverity_Rank(t *testing.T) {
	ordered := []Severity{SeverityInfo, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, ordered[i].Rank(), ordered[i-1].Rank(), ordered[i])
		assert.True(t, ordered[i].IsValid())
	}

	assert.Equal(t, 0, Severity("").Rank())
	assert.False(t, Severity("severe").IsValid())
}

func TestScanResult_HighestSeverity(t *testing.T) {
	result := NewScanResult("app.js")
	assert.False(t, result.HasAlerts())
	assert.Equal(t, Severity(""), result.HighestSeverity())
	assert.NotNil(t, result.Alerts)

	result.Alerts = []Alert{
		{Severity: SeverityLow},
		{Severity: SeverityCritical},
		{Severity: SeverityMedium},
	}
	assert.True(t, result.HasAlerts())
	assert.Equal(t, SeverityCritical, result.HighestSeverity())
}

func TestScanResult_EmptyAlertsEncodeAsArray(t *testing.T) {
	data, err := json.Marshal(NewScanResult("app.js"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"alerts":[]`)
}

func TestAlert_FixPayload(t *testing.T) {
	alert := Alert{
		ID:             "a1",
		FilePath:       "/repo/app.js",
		CurrentContent: "",
		ProposedFix:    "fixed\n",
	}

	payload := alert.FixPayload()

	assert.Equal(t, "a1", payload.AlertID)
	assert.Equal(t, "/repo/app.js", payload.FilePath)
	require.NotNil(t, payload.OriginalContent)
	require.NotNil(t, payload.ReplacementContent)
	assert.Equal(t, "", *payload.OriginalContent)
	assert.Equal(t, "fixed\n", *payload.ReplacementContent)

	// The payload does not alias the alert.
	*payload.ReplacementContent = "changed"
	assert.Equal(t, "fixed\n", alert.ProposedFix)
}

func TestFixPayload_DistinguishesMissingFromEmpty(t *testing.T) {
	var missing FixPayload
	require.NoError(t, json.Unmarshal([]byte(`{"alertId":"a","filePath":"f","replacementContent":"x"}`), &missing))
	assert.Nil(t, missing.OriginalContent)

	var empty FixPayload
	require.NoError(t, json.Unmarshal([]byte(`{"alertId":"a","filePath":"f","originalContent":"","replacementContent":"x"}`), &empty))
	require.NotNil(t, empty.OriginalContent)
	assert.Equal(t, "", *empty.OriginalContent)
}

func TestChangeKind_IsValid(t *testing.T) {
	for _, kind := range []ChangeKind{ChangeAdded, ChangeChanged, ChangeRemoved} {
		assert.True(t, kind.IsValid(), kind)
	}
	assert.False(t, ChangeKind("renamed").IsValid())
}

func TestEnvelope(t *testing.T) {
	env, err := NewEnvelope(MessageFileRemoved, FileRemoved{FilePath: "/repo/app.js"})
	require.NoError(t, err)

	data, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"file-removed","payload":{"filePath":"/repo/app.js"}}`, string(data))

	var decoded FileRemoved
	require.NoError(t, env.Decode(&decoded))
	assert.Equal(t, "/repo/app.js", decoded.FilePath)

	assert.Error(t, Envelope{Type: MessageFixApply}.Decode(&decoded))
	assert.Error(t, Envelope{Type: MessageFixApply, Payload: json.RawMessage(`[1]`)}.Decode(&decoded))
}
