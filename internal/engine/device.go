package engine

// DeviceID identifies a physical input device by its USB/Bluetooth
// descriptor fields, any of which may be unknown.
type DeviceID struct {
	Bustype *uint16
	Vendor  *uint16
	Product *uint16
	Version *uint16
}

// DeviceMatcher matches a DeviceID iff every field it specifies equals
// the device's corresponding field; an unset field is a wildcard.
type DeviceMatcher struct {
	Bustype *uint16
	Vendor  *uint16
	Product *uint16
	Version *uint16
}

// Matches reports whether id satisfies every field this matcher specifies.
func (m DeviceMatcher) Matches(id DeviceID) bool {
	return fieldMatches(m.Bustype, id.Bustype) &&
		fieldMatches(m.Vendor, id.Vendor) &&
		fieldMatches(m.Product, id.Product) &&
		fieldMatches(m.Version, id.Version)
}

func fieldMatches(rule, data *uint16) bool {
	if rule == nil {
		return true
	}
	return data != nil && *rule == *data
}

// DeviceMatchers is the device-matching policy: a grab list and a skip
// list applied to every candidate device.
type DeviceMatchers struct {
	Grab []DeviceMatcher
	Skip []DeviceMatcher
}

// YubicoVendorID is the USB vendor ID Yubico hardware one-time-password
// devices report. The default skip rule matching it is always applied
// so such devices are never grabbed unless the configuration explicitly
// overrides the skip list.
const YubicoVendorID uint16 = 0x1050

// DefaultSkip is the skip list used when a configuration omits the
// devices.skip field entirely.
func DefaultSkip() []DeviceMatcher {
	vendor := YubicoVendorID
	return []DeviceMatcher{{Vendor: &vendor}}
}

// ShouldGrab reports whether id should be intercepted: the grab list is
// empty or matches, AND the skip list is empty or does not match.
func (m DeviceMatchers) ShouldGrab(id DeviceID) bool {
	grabOK := len(m.Grab) == 0
	for _, entry := range m.Grab {
		if entry.Matches(id) {
			grabOK = true
			break
		}
	}
	if !grabOK {
		return false
	}

	for _, entry := range m.Skip {
		if entry.Matches(id) {
			return false
		}
	}
	return true
}
