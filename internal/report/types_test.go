package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = `{
  "demo": false,
  "cpu": {"user": "10", "system": "5", "idle": "85"},
  "memory": {
    "Mem": {"total": 15.5, "used": 4.2, "free": 11.3},
    "Swap": {"total": 2, "used": 0, "free": 2}
  },
  "sensors": {
    "device0": {"name0": "coretemp-isa-0000", "name1": "ISA adapter", "values": {"temp1_input": 45, "temp1_crit": 100}},
    "device1": {"name0": "acpitz-acpi-0", "name1": "", "values": {"temp1_input": 27.8}}
  },
  "drives": {
    "sda": {
      "size": "465.8G", "type": "disk", "smart_health": "PASSED",
      "smart_attributes": [{"attr_id": "5", "attribute_name": "Reallocated_Sector_Ct", "value": "100", "raw_value": "0"}],
      "children": {"sda1": {"size": "512M", "type": "part", "mount": "/boot/efi"}}
    },
    "sdb": {"size": "2T", "type": "disk"}
  },
  "logical_volumes": [
    {"filesystem": "/dev/sda2", "k_blocks": "100", "used": "40", "available": "60", "use_percent": "40%", "mount_point": "/"},
    {"filesystem": "tmpfs", "k_blocks": "0", "used": "0", "available": "0", "use_percent": "-", "mount_point": "/run/user"},
    {"filesystem": "/dev/sda1", "k_blocks": "100", "used": "1", "available": "99", "use_percent": "1%", "mount_point": "/boot/efi"}
  ],
  "processes": [{"pid": "12", "tty": "?", "time": "00:00:01", "cmd": "kworker"}, {"pid": "3", "tty": "?", "time": "00:00:00", "cmd": "init"}],
  "uptime": "up 2 days",
  "os": "#1 SMP Debian"
}`

func TestDecode_Sections(t *testing.T) {
	r, err := Decode([]byte(sampleReport))
	require.NoError(t, err)

	assert.Equal(t, []string{"user", "system", "idle"}, r.CPU.Names())

	require.Len(t, r.Memory, 2)
	assert.Equal(t, "Mem", r.Memory[0].Name)
	assert.Equal(t, "Swap", r.Memory[1].Name)

	require.Len(t, r.Sensors, 2)
	assert.Equal(t, "device0", r.Sensors[0].Key)
	assert.Equal(t, "coretemp-isa-0000", r.Sensors[0].Name)
	assert.Equal(t, "ISA adapter", r.Sensors[0].Adapter)

	require.Len(t, r.Drives, 2)
	assert.Equal(t, "sda", r.Drives[0].Name)
	assert.Equal(t, "PASSED", r.Drives[0].SmartHealth)
	require.Len(t, r.Drives[0].SmartAttributes, 1)
	assert.Equal(t, "Reallocated_Sector_Ct", r.Drives[0].SmartAttributes[0].Name)
	require.Len(t, r.Drives[0].Children, 1)
	assert.Equal(t, "/boot/efi", r.Drives[0].Children[0].Mount)

	assert.Equal(t, "up 2 days", r.Uptime)
}

func TestEncode_RoundTripsOrder(t *testing.T) {
	r, err := Decode([]byte(sampleReport))
	require.NoError(t, err)

	data, err := Encode(r)
	require.NoError(t, err)

	again, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, r, again)
}

func TestReport_Groups(t *testing.T) {
	r, err := Decode([]byte(sampleReport))
	require.NoError(t, err)

	tests := []struct {
		kind     Kind
		prefixes []string
		titles   []string
	}{
		{KindCPU, []string{"cpu"}, []string{"CPU"}},
		{KindMemory, []string{"mem_Mem", "mem_Swap"}, []string{"Mem", "Swap"}},
		{KindSensors, []string{"sens_coretemp-isa-0000", "sens_acpitz-acpi-0"},
			[]string{"coretemp-isa-0000 / ISA adapter", "acpitz-acpi-0"}},
		{KindLogicalVolumes, []string{"sto"}, []string{"Logical volumes"}},
		{KindDrives, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			groups := r.Groups(tt.kind)
			var prefixes, titles []string
			for _, g := range groups {
				assert.Equal(t, tt.kind, g.Kind)
				prefixes = append(prefixes, g.Prefix)
				titles = append(titles, g.Title)
			}
			assert.Equal(t, tt.prefixes, prefixes)
			assert.Equal(t, tt.titles, titles)
		})
	}
}

func TestReport_StorageUsageSkipsDash(t *testing.T) {
	r, err := Decode([]byte(sampleReport))
	require.NoError(t, err)

	usage := r.StorageUsage()
	assert.Equal(t, Values{{"_", 40}, {"_boot_efi", 1}}, usage)
}

func TestReport_GroupsNilReport(t *testing.T) {
	var r *Report
	assert.Empty(t, r.Groups(KindCPU))
}

func TestReport_ProcessesByPID(t *testing.T) {
	r, err := Decode([]byte(sampleReport))
	require.NoError(t, err)

	procs := r.ProcessesByPID()
	require.Len(t, procs, 2)
	assert.Equal(t, "3", procs[0].PID)
	assert.Equal(t, "12", procs[1].PID)
	assert.Equal(t, "12", r.Processes[0].PID, "original order untouched")
}
