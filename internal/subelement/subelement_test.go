package subelement

import "testing"

func TestDeviceInfoRoundTrip(t *testing.T) {
	want := DeviceInfo{
		Type:                  DeviceTypePrimarySink,
		SessionAvailable:      true,
		WSDSupported:          true,
		ContentProtectionSupp: true,
		ControlPort:           7236,
		MaxThroughputMbps:     50,
	}

	raw := EncodeDeviceInfo(want)
	hdr, err := DecodeHeader(raw)
	if err != nil {
		t.Fatalf("DecodeHeader() error = %v", err)
	}
	if hdr.ID != IDDeviceInfo {
		t.Fatalf("ID = %v, want DeviceInfo", hdr.ID)
	}

	got, err := DecodeDeviceInfo(raw[3:])
	if err != nil {
		t.Fatalf("DecodeDeviceInfo() error = %v", err)
	}
	if got != want {
		t.Fatalf("DecodeDeviceInfo() = %+v, want %+v", got, want)
	}
}

func TestVideoFormatsRoundTrip(t *testing.T) {
	want := VideoFormats{
		PreferredDisplayMode: 1,
		Profiles:             1,
		Levels:               2,
		CEAResolutions:       0x00000020,
		LatencyMs:            8,
	}

	raw := EncodeVideoFormats(want)
	got, err := DecodeVideoFormats(raw[3:])
	if err != nil {
		t.Fatalf("DecodeVideoFormats() error = %v", err)
	}
	if got != want {
		t.Fatalf("DecodeVideoFormats() = %+v, want %+v", got, want)
	}
}

func TestExtendedCapabilityRoundTrip(t *testing.T) {
	want := ExtendedCapability{UIBCSupported: true}
	raw := EncodeExtendedCapability(want)
	got, err := DecodeExtendedCapability(raw[3:])
	if err != nil {
		t.Fatalf("DecodeExtendedCapability() error = %v", err)
	}
	if got != want {
		t.Fatalf("DecodeExtendedCapability() = %+v, want %+v", got, want)
	}
}

func TestSplitMultipleElements(t *testing.T) {
	buf := append(EncodeDeviceInfo(DeviceInfo{Type: DeviceTypeSource}),
		EncodeExtendedCapability(ExtendedCapability{UIBCSupported: true})...)

	elems, err := Split(buf)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(elems) != 2 {
		t.Fatalf("len(elems) = %d, want 2", len(elems))
	}
	if elems[0].Header.ID != IDDeviceInfo || elems[1].Header.ID != IDExtendedCapability {
		t.Fatalf("unexpected element order: %v, %v", elems[0].Header.ID, elems[1].Header.ID)
	}
}

func TestSplitTruncated(t *testing.T) {
	buf := []byte{byte(IDDeviceInfo), 0x00, 0x10, 0x01} // declares 16 bytes, has 1
	if _, err := Split(buf); err == nil {
		t.Fatal("expected truncation error")
	}
}

func TestIDStringUnknown(t *testing.T) {
	if got := ID(200).String(); got != "Unknown(200)" {
		t.Fatalf("String() = %q", got)
	}
}
