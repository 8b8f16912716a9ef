package card

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	// 16GB SDHC card
	csdV2 = "400e00325b590000734f7f800a400000"
	// 2GB SDSC card with 1024 byte blocks
	csdV1 = "000000325f5a03b3c003800000000000"
	scr   = "0235800000000000"
	cid   = "1b534d30303030301012345678011300"
)

func mustRegister(t *testing.T, s string, bits int) []byte {
	t.Helper()
	raw, err := parseRegister(s, bits)
	require.NoError(t, err)
	return raw
}

func TestDecodeCSDv2(t *testing.T) {
	csd, err := decodeCSD(mustRegister(t, csdV2, 128))
	require.NoError(t, err)

	assert.Equal(t, &CSD{
		Ver:        1,
		SectorSize: 512,
		Capacity:   30228480,
		ReadBlLen:  9,
		TrSpeed:    25000000,
		CCC:        0x5b5,
	}, csd)
}

func TestDecodeCSDv1(t *testing.T) {
	csd, err := decodeCSD(mustRegister(t, csdV1, 128))
	require.NoError(t, err)

	assert.Equal(t, 0, csd.Ver)
	assert.Equal(t, 10, csd.ReadBlLen)
	assert.Equal(t, 512, csd.SectorSize)
	assert.Equal(t, uint64(3883008), csd.Capacity)
	assert.Equal(t, 0x5f5, csd.CCC)
}

func TestDecodeCSDHighSpeed(t *testing.T) {
	raw := mustRegister(t, csdV2, 128)
	raw[3] = csdSpeed50MHz

	csd, err := decodeCSD(raw)
	require.NoError(t, err)
	assert.Equal(t, 50000000, csd.TrSpeed)
	assert.Equal(t, "high speed", (&Registers{CSD: csd}).speed())
}

func TestDecodeCSDUnsupported(t *testing.T) {
	raw := mustRegister(t, csdV2, 128)
	raw[0] = 0xc0

	_, err := decodeCSD(raw)
	assert.Error(t, err)
}

func TestDecodeSCR(t *testing.T) {
	assert.Equal(t, &SCR{SDSpec: 2, BusWidth: 5}, decodeSCR(mustRegister(t, scr, 64)))
}

func TestDecodeCID(t *testing.T) {
	assert.Equal(t, &CID{
		ManufacturerID: 0x1b,
		OEMID:          0x534d,
		Name:           "00000",
		Revision:       0x10,
		Serial:         0x12345678,
		Date:           "03/2017",
	}, decodeCID(mustRegister(t, cid, 128)))
}

func TestParseRegister(t *testing.T) {
	_, err := parseRegister("0x"+scr, 64)
	assert.NoError(t, err)

	_, err = parseRegister(scr, 128)
	assert.Error(t, err)

	_, err = parseRegister("zz", 8)
	assert.Error(t, err)
}

func TestCardType(t *testing.T) {
	v1 := &CSD{Ver: csdVer1}
	v2 := &CSD{Ver: csdVer2}

	tests := []struct {
		name string
		regs Registers
		want string
	}{
		{"ocr high capacity", Registers{HasOCR: true, OCR: 0xc0ff8000, CSD: v1}, "SDHC/SDXC"},
		{"ocr standard capacity", Registers{HasOCR: true, OCR: 0x80ff8000, CSD: v2}, "SDSC"},
		{"csd v2", Registers{CSD: v2}, "SDHC/SDXC"},
		{"csd v1", Registers{CSD: v1}, "SDSC"},
		{"reader 32GB card", Registers{Kind: "SD", Capacity: 32 << 30}, "SDHC/SDXC"},
		{"reader 1GB card", Registers{Kind: "SD", Capacity: 1 << 30}, "SDSC"},
		{"kind only", Registers{Kind: "MMC"}, "MMC"},
		{"nothing", Registers{}, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.regs.cardType())
		})
	}
}
