package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "github.com/sinajet/nx-mtp-sender/pkg/backend"
)

var testDevices = []core.DeviceInfo{
	{ID: "usb#1", Name: "Pixel 7", Description: "Google Pixel", Serial: "AAA", FriendlyName: true},
	{ID: "usb#2", Name: "Galaxy S23", Description: "Samsung Galaxy", Serial: "BBB", FriendlyName: true},
}

func TestSelectDeviceDefaultsToFirst(t *testing.T) {
	got, err := selectDevice(testDevices, "")
	require.NoError(t, err)
	assert.Equal(t, "usb#1", got.ID)
}

func TestSelectDeviceBySubstring(t *testing.T) {
	got, err := selectDevice(testDevices, "galaxy")
	require.NoError(t, err)
	assert.Equal(t, "usb#2", got.ID)
}

func TestSelectDeviceByID(t *testing.T) {
	got, err := selectDevice(testDevices, "usb#1")
	require.NoError(t, err)
	assert.Equal(t, "usb#1", got.ID)
}

func TestSelectDeviceNoMatch(t *testing.T) {
	_, err := selectDevice(testDevices, "iphone")
	assert.Error(t, err)
}

func TestSelectDeviceAmbiguous(t *testing.T) {
	_, err := selectDevice(testDevices, "usb#")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")
}
