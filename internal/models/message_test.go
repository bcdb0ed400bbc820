package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrameMessage(t *testing.T) {
	m, err := ParseFrameMessage([]byte(`{"intensity": 142.5}`))
	require.NoError(t, err)
	assert.Equal(t, []float64{142.5}, m.Values())

	m, err = ParseFrameMessage([]byte(`{"intensities": [140, 141, 139]}`))
	require.NoError(t, err)
	assert.Equal(t, []float64{140, 141, 139}, m.Values())

	_, err = ParseFrameMessage([]byte(`{}`))
	var formatErr *DataFormatError
	assert.ErrorAs(t, err, &formatErr)

	_, err = ParseFrameMessage([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseControlMessage(t *testing.T) {
	m, err := ParseControlMessage([]byte(`{"action": " Start "}`))
	require.NoError(t, err)
	assert.Equal(t, ControlStart, m.Action)

	_, err = ParseControlMessage([]byte(`{"action": "pause"}`))
	assert.Error(t, err)
}

func TestDeviceIDFromTopic(t *testing.T) {
	assert.Equal(t, "dev-1", DeviceIDFromTopic("ppg/dev-1/frame"))
	assert.Equal(t, "dev-2", DeviceIDFromTopic("site/ppg/dev-2/control"))
	assert.Equal(t, "", DeviceIDFromTopic("frame"))
}

func TestModelArtifact_Validate(t *testing.T) {
	var nilArtifact *ModelArtifact
	assert.Error(t, nilArtifact.Validate())
	assert.Error(t, (&ModelArtifact{Key: "k"}).Validate())
}
