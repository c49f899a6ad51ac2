package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func u16(v uint16) *uint16 { return &v }

func TestDeviceMatcherWildcardFields(t *testing.T) {
	m := DeviceMatcher{Vendor: u16(0x1050)}
	assert.True(t, m.Matches(DeviceID{Vendor: u16(0x1050), Product: u16(1)}))
	assert.True(t, m.Matches(DeviceID{Vendor: u16(0x1050), Product: u16(2)}))
	assert.False(t, m.Matches(DeviceID{Vendor: u16(0x0001), Product: u16(1)}))
}

func TestDeviceMatcherUnknownFieldNeverMatchesASpecifiedRule(t *testing.T) {
	m := DeviceMatcher{Vendor: u16(0x1050)}
	assert.False(t, m.Matches(DeviceID{Product: u16(1)}))
}

func TestDeviceMatcherAllFieldsMustAgree(t *testing.T) {
	m := DeviceMatcher{Vendor: u16(1), Product: u16(2)}
	assert.True(t, m.Matches(DeviceID{Vendor: u16(1), Product: u16(2), Version: u16(99)}))
	assert.False(t, m.Matches(DeviceID{Vendor: u16(1), Product: u16(3)}))
}

func TestDefaultSkipMatchesYubicoVendor(t *testing.T) {
	skip := DefaultSkip()
	matchers := DeviceMatchers{Skip: skip}
	assert.False(t, matchers.ShouldGrab(DeviceID{Vendor: u16(YubicoVendorID)}))
	assert.True(t, matchers.ShouldGrab(DeviceID{Vendor: u16(0x046d)}))
}

func TestShouldGrabEmptyGrabListMatchesEverythingNotSkipped(t *testing.T) {
	m := DeviceMatchers{}
	assert.True(t, m.ShouldGrab(DeviceID{Vendor: u16(1)}))
}

func TestShouldGrabNonEmptyGrabListIsAnAllowlist(t *testing.T) {
	m := DeviceMatchers{Grab: []DeviceMatcher{{Vendor: u16(1)}}}
	assert.True(t, m.ShouldGrab(DeviceID{Vendor: u16(1)}))
	assert.False(t, m.ShouldGrab(DeviceID{Vendor: u16(2)}))
}

func TestShouldGrabSkipOverridesGrab(t *testing.T) {
	m := DeviceMatchers{
		Grab: []DeviceMatcher{{Vendor: u16(1)}},
		Skip: []DeviceMatcher{{Vendor: u16(1), Product: u16(7)}},
	}
	assert.False(t, m.ShouldGrab(DeviceID{Vendor: u16(1), Product: u16(7)}))
	assert.True(t, m.ShouldGrab(DeviceID{Vendor: u16(1), Product: u16(8)}))
}

func TestShouldGrabMonotoneUnderNarrowingSkipList(t *testing.T) {
	id := DeviceID{Vendor: u16(1), Product: u16(7)}
	base := DeviceMatchers{}
	withSkip := DeviceMatchers{Skip: []DeviceMatcher{{Vendor: u16(1)}}}

	// Adding a skip rule can only ever turn a grab into a non-grab, never
	// the other way around.
	if !base.ShouldGrab(id) {
		t.Fatal("precondition: base policy should grab id")
	}
	assert.False(t, withSkip.ShouldGrab(id))
}
