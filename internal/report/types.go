package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Report is a full point-in-time metrics snapshot for one host.
type Report struct {
	Demo           bool            `json:"demo"`
	CPU            Values          `json:"cpu,omitempty"`
	Memory         MemoryPools     `json:"memory,omitempty"`
	Sensors        SensorDevices   `json:"sensors,omitempty"`
	Drives         Drives          `json:"drives,omitempty"`
	LogicalVolumes []LogicalVolume `json:"logical_volumes,omitempty"`
	Processes      []Process       `json:"processes,omitempty"`
	Uptime         string          `json:"uptime,omitempty"`
	OS             string          `json:"os,omitempty"`
	Dmesg          string          `json:"dmesg,omitempty"`
	Network        string          `json:"network,omitempty"`
}

// MemoryPool is one row of `free` output (Mem, Swap, ...).
type MemoryPool struct {
	Name   string
	Values Values
}

// MemoryPools encodes as {"Mem": {...}, "Swap": {...}}.
type MemoryPools []MemoryPool

// SensorDevice is one lm-sensors chip.
type SensorDevice struct {
	Key     string // "device0", "device1", ... in the wire format
	Name    string // chip name, e.g. "coretemp-isa-0000"
	Adapter string // e.g. "ISA adapter"
	Values  Values
}

// SensorDevices encodes as {"device0": {"name0": ..., "name1": ..., "values": {...}}}.
type SensorDevices []SensorDevice

// Drive is a block device as reported by lsblk, with its partitions as children.
type Drive struct {
	Name            string
	Size            string // lsblk size, e.g. "465.8G"
	Type            string // disk, part, lvm, rom
	Mount           string
	SmartHealth     string
	SmartAttributes []SmartAttribute
	Children        Drives
}

// Drives encodes as a name-keyed object tree.
type Drives []Drive

// SmartAttribute is one row of `smartctl -A`.
type SmartAttribute struct {
	ID         string `json:"attr_id"`
	Name       string `json:"attribute_name"`
	Flag       string `json:"flag"`
	Value      string `json:"value"`
	Worst      string `json:"worst"`
	Thresh     string `json:"thresh"`
	Type       string `json:"type"`
	Updated    string `json:"updated"`
	WhenFailed string `json:"when_failed"`
	RawValue   string `json:"raw_value"`
}

// LogicalVolume is one row of `df`.
type LogicalVolume struct {
	Filesystem string `json:"filesystem"`
	KBlocks    string `json:"k_blocks"`
	Used       string `json:"used"`
	Available  string `json:"available"`
	UsePercent string `json:"use_percent"`
	MountPoint string `json:"mount_point"`
}

// Process is one row of `ps -A`.
type Process struct {
	PID  string `json:"pid"`
	TTY  string `json:"tty"`
	Time string `json:"time"`
	Cmd  string `json:"cmd"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *MemoryPools) UnmarshalJSON(data []byte) error {
	out := MemoryPools{}
	err := decodeObject(data, func(key string, raw json.RawMessage) error {
		var vals Values
		if err := json.Unmarshal(raw, &vals); err != nil {
			return fmt.Errorf("memory pool %q: %w", key, err)
		}
		out = append(out, MemoryPool{Name: key, Values: vals})
		return nil
	})
	if err != nil {
		return err
	}
	*m = out
	return nil
}

// MarshalJSON implements json.Marshaler.
func (m MemoryPools) MarshalJSON() ([]byte, error) {
	keys := make([]string, len(m))
	vals := make([]json.RawMessage, len(m))
	for i, pool := range m {
		raw, err := pool.Values.MarshalJSON()
		if err != nil {
			return nil, err
		}
		keys[i] = pool.Name
		vals[i] = raw
	}
	return encodeObject(keys, vals)
}

type wireSensor struct {
	Name0  string `json:"name0"`
	Name1  string `json:"name1"`
	Values Values `json:"values"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *SensorDevices) UnmarshalJSON(data []byte) error {
	out := SensorDevices{}
	err := decodeObject(data, func(key string, raw json.RawMessage) error {
		var w wireSensor
		if err := json.Unmarshal(raw, &w); err != nil {
			return fmt.Errorf("sensor %q: %w", key, err)
		}
		out = append(out, SensorDevice{Key: key, Name: w.Name0, Adapter: w.Name1, Values: w.Values})
		return nil
	})
	if err != nil {
		return err
	}
	*s = out
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s SensorDevices) MarshalJSON() ([]byte, error) {
	keys := make([]string, len(s))
	vals := make([]json.RawMessage, len(s))
	for i, dev := range s {
		key := dev.Key
		if key == "" {
			key = "device" + strconv.Itoa(i)
		}
		raw, err := json.Marshal(wireSensor{Name0: dev.Name, Name1: dev.Adapter, Values: dev.Values})
		if err != nil {
			return nil, err
		}
		keys[i] = key
		vals[i] = raw
	}
	return encodeObject(keys, vals)
}

type wireDrive struct {
	Size            string           `json:"size"`
	Type            string           `json:"type"`
	Mount           string           `json:"mount,omitempty"`
	SmartHealth     string           `json:"smart_health,omitempty"`
	SmartAttributes []SmartAttribute `json:"smart_attributes,omitempty"`
	Children        Drives           `json:"children,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Drives) UnmarshalJSON(data []byte) error {
	out := Drives{}
	err := decodeObject(data, func(key string, raw json.RawMessage) error {
		var w wireDrive
		if err := json.Unmarshal(raw, &w); err != nil {
			return fmt.Errorf("drive %q: %w", key, err)
		}
		out = append(out, Drive{
			Name:            key,
			Size:            w.Size,
			Type:            w.Type,
			Mount:           w.Mount,
			SmartHealth:     w.SmartHealth,
			SmartAttributes: w.SmartAttributes,
			Children:        w.Children,
		})
		return nil
	})
	if err != nil {
		return err
	}
	*d = out
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Drives) MarshalJSON() ([]byte, error) {
	keys := make([]string, len(d))
	vals := make([]json.RawMessage, len(d))
	for i, drive := range d {
		raw, err := json.Marshal(wireDrive{
			Size:            drive.Size,
			Type:            drive.Type,
			Mount:           drive.Mount,
			SmartHealth:     drive.SmartHealth,
			SmartAttributes: drive.SmartAttributes,
			Children:        drive.Children,
		})
		if err != nil {
			return nil, err
		}
		keys[i] = drive.Name
		vals[i] = raw
	}
	return encodeObject(keys, vals)
}

// Kind identifies a chartable metric group.
type Kind int

const (
	KindCPU Kind = iota
	KindMemory
	KindSensors
	KindDrives
	KindLogicalVolumes
)

// String returns the report section name for the kind.
func (k Kind) String() string {
	switch k {
	case KindCPU:
		return "cpu"
	case KindMemory:
		return "memory"
	case KindSensors:
		return "sensors"
	case KindDrives:
		return "drives"
	case KindLogicalVolumes:
		return "logical_volumes"
	default:
		return "unknown"
	}
}

// Group is one chartable metric group found in a report.
type Group struct {
	Kind Kind
	// Name is the group's own key: "cpu", a memory pool, a sensor chip.
	Name string
	// Title is shown above the panel ("coretemp-isa-0000 / ISA adapter").
	Title string
	// Prefix is the stable identifier shared by view ids and backend tables.
	Prefix string
	Values Values
}

// StoragePrefix is the backend dataset of logical volume usage.
const StoragePrefix = "sto"

// Groups returns the groups of the given kind, in report order.
// Drive groups are built by DriveSizes, which can fail per drive.
func (r *Report) Groups(kind Kind) []Group {
	if r == nil {
		return nil
	}

	var groups []Group
	switch kind {
	case KindCPU:
		if len(r.CPU) > 0 {
			groups = append(groups, Group{Kind: KindCPU, Name: "cpu", Title: "CPU", Prefix: "cpu", Values: r.CPU})
		}
	case KindMemory:
		for _, pool := range r.Memory {
			groups = append(groups, Group{
				Kind:   KindMemory,
				Name:   pool.Name,
				Title:  pool.Name,
				Prefix: "mem_" + pool.Name,
				Values: pool.Values,
			})
		}
	case KindSensors:
		for _, dev := range r.Sensors {
			title := dev.Name
			if dev.Adapter != "" {
				title += " / " + dev.Adapter
			}
			groups = append(groups, Group{
				Kind:   KindSensors,
				Name:   dev.Name,
				Title:  title,
				Prefix: "sens_" + dev.Name,
				Values: dev.Values,
			})
		}
	case KindLogicalVolumes:
		if usage := r.StorageUsage(); len(usage) > 0 {
			groups = append(groups, Group{
				Kind:   KindLogicalVolumes,
				Name:   "storage",
				Title:  "Logical volumes",
				Prefix: StoragePrefix,
				Values: usage,
			})
		}
	}
	return groups
}

// StorageUsage maps each mount point (with "/" replaced by "_") to its use
// percentage. Rows where df prints "-" instead of a percentage are skipped.
func (r *Report) StorageUsage() Values {
	var out Values
	for _, lv := range r.LogicalVolumes {
		pct, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(lv.UsePercent), "%"), 64)
		if err != nil || lv.MountPoint == "" {
			continue
		}
		out = append(out, Field{Name: MountKey(lv.MountPoint), Value: pct})
	}
	return out
}

// MountKey turns a mount point into a field name usable as a column.
func MountKey(mount string) string {
	return strings.ReplaceAll(mount, "/", "_")
}

// ProcessesByPID returns the processes sorted by numeric pid.
func (r *Report) ProcessesByPID() []Process {
	procs := make([]Process, len(r.Processes))
	copy(procs, r.Processes)
	sort.SliceStable(procs, func(i, j int) bool {
		a, errA := strconv.Atoi(procs[i].PID)
		b, errB := strconv.Atoi(procs[j].PID)
		if errA != nil || errB != nil {
			return procs[i].PID < procs[j].PID
		}
		return a < b
	})
	return procs
}

// Decode parses a report from its JSON wire form.
func Decode(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Encode returns the JSON wire form of the report.
func Encode(r *Report) ([]byte, error) {
	return json.Marshal(r)
}
