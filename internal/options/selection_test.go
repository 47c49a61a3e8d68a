package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBusDevnum(t *testing.T) {
	tests := []struct {
		in         string
		wantBusnum uint32
		wantDevnum uint32
		wantErr    string
	}{
		{in: "5", wantDevnum: 5},
		{in: "2:17", wantBusnum: 2, wantDevnum: 17},
		{in: "4294967295", wantDevnum: 4294967295},
		{in: "4294967295:4294967295", wantBusnum: 4294967295, wantDevnum: 4294967295},
		{in: "0", wantErr: "invalid dev number: 0"},
		{in: "3:0", wantErr: "invalid dev number: 0"},
		{in: "0:3", wantErr: "invalid bus number: 0"},
		{in: "4294967296", wantErr: "invalid dev number: 4294967296"},
		{in: "1:4294967296", wantErr: "invalid dev number: 4294967296"},
		{in: "abc", wantErr: "invalid dev number: abc"},
		{in: "12abc", wantErr: "invalid dev number: 12abc"},
		{in: "x:2", wantErr: "invalid bus number: x"},
		{in: "-1", wantErr: "invalid dev number: -1"},
		{in: "+1", wantErr: "invalid dev number: +1"},
		{in: "", wantErr: "invalid dev number: "},
		{in: "1:", wantErr: "invalid dev number: "},
		{in: "a", wantErr: "invalid dev number: a"},
		{in: "1:2:3", wantErr: "invalid busnum-devnum string: too many fields: 1:2:3"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			busnum, devnum, err := ParseBusDevnum(tt.in)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.EqualError(t, err, tt.wantErr)
				var syntaxErr *SyntaxError
				assert.ErrorAs(t, err, &syntaxErr)
				assert.Zero(t, busnum)
				assert.Zero(t, devnum)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBusnum, busnum)
			assert.Equal(t, tt.wantDevnum, devnum)
		})
	}
}

func TestParseVidPid(t *testing.T) {
	tests := []struct {
		in      string
		wantVID uint16
		wantPID uint16
		wantErr string
	}{
		{in: "1199", wantVID: 0x1199},
		{in: "1199:68c0", wantVID: 0x1199, wantPID: 0x68c0},
		{in: "0x1199:0X68C0", wantVID: 0x1199, wantPID: 0x68c0},
		{in: "ffff:ffff", wantVID: 0xffff, wantPID: 0xffff},
		{in: "1", wantVID: 1},
		{in: "0", wantErr: "invalid vendor id: 0"},
		{in: "0x", wantErr: "invalid vendor id: 0x"},
		{in: "10000", wantErr: "invalid vendor id: 10000"},
		{in: "1199:0", wantErr: "invalid product id: 0"},
		{in: "1199:10000", wantErr: "invalid product id: 10000"},
		{in: "zz:1", wantErr: "invalid vendor id: zz"},
		{in: "1199:g1", wantErr: "invalid product id: g1"},
		{in: ":68c0", wantErr: "invalid vendor id: "},
		{in: "1:2:3", wantErr: "invalid vid-pid string: too many fields: 1:2:3"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			vid, pid, err := ParseVidPid(tt.in)
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				assert.Zero(t, vid)
				assert.Zero(t, pid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVID, vid)
			assert.Equal(t, tt.wantPID, pid)
		})
	}
}

func TestSelectionGroups(t *testing.T) {
	assert.True(t, Selection{}.IsZero())
	assert.True(t, Selection{PID: 1}.HasVidPid())
	assert.True(t, Selection{Busnum: 1}.HasBusDevnum())
	assert.False(t, Selection{Path: "/dev/cdc-wdm0"}.IsZero())
	assert.False(t, Selection{Path: "/dev/cdc-wdm0"}.HasVidPid())
}
