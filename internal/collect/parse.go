package collect

import (
	"bufio"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/rileyhilliard/whm/internal/report"
)

// lines splits command output into non-blank lines.
func lines(out string) []string {
	var result []string
	sc := bufio.NewScanner(strings.NewReader(out))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			result = append(result, sc.Text())
		}
	}
	return result
}

// columns splits a whitespace-separated line into at most n fields. The
// last field keeps the rest of the line, spaces included.
func columns(line string, n int) []string {
	out := make([]string, 0, n)
	rest := strings.TrimSpace(line)
	for len(out) < n-1 && rest != "" {
		end := strings.IndexFunc(rest, unicode.IsSpace)
		if end < 0 {
			break
		}
		out = append(out, rest[:end])
		rest = strings.TrimSpace(rest[end:])
	}
	if rest != "" {
		out = append(out, rest)
	}
	for len(out) < n {
		out = append(out, "")
	}
	return out
}

func skipHeader(ls []string, prefix string) []string {
	if len(ls) > 0 && strings.HasPrefix(strings.TrimSpace(ls[0]), prefix) {
		return ls[1:]
	}
	return ls
}

// ParseSensors parses `sensors -u`. Chips are separated by blank lines; each
// starts with the chip name and an "Adapter:" line followed by indented
// "key: value" readings. Group headers without a value are skipped.
func ParseSensors(out string) report.SensorDevices {
	var devices report.SensorDevices
	for _, block := range strings.Split(strings.ReplaceAll(out, "\r\n", "\n"), "\n\n") {
		ls := lines(block)
		if len(ls) == 0 {
			continue
		}
		dev := report.SensorDevice{
			Key:  "device" + strconv.Itoa(len(devices)),
			Name: strings.TrimSpace(ls[0]),
		}
		rest := ls[1:]
		if len(rest) > 0 && strings.HasPrefix(rest[0], "Adapter:") {
			dev.Adapter = strings.TrimSpace(strings.TrimPrefix(rest[0], "Adapter:"))
			rest = rest[1:]
		}
		for _, l := range rest {
			key, value, ok := strings.Cut(l, ":")
			if !ok {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil {
				continue
			}
			dev.Values = append(dev.Values, report.Field{Name: strings.ReplaceAll(key, " ", ""), Value: v})
		}
		devices = append(devices, dev)
	}
	return devices
}

// ParseFree parses `free` into one pool per row. free and utilization are
// derived from total and used.
func ParseFree(out string) report.MemoryPools {
	var pools report.MemoryPools
	for _, l := range lines(out) {
		name, rest, ok := strings.Cut(l, ":")
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) < 2 {
			continue
		}
		total, err1 := strconv.ParseFloat(fields[0], 64)
		used, err2 := strconv.ParseFloat(fields[1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		util := 0.0
		if total > 0 {
			util = math.Round(used/total*10000) / 100
		}
		pools = append(pools, report.MemoryPool{
			Name: strings.TrimSpace(name),
			Values: report.Values{
				{Name: "total", Value: total},
				{Name: "used", Value: used},
				{Name: "free", Value: total - used},
				{Name: "utilization", Value: util},
			},
		})
	}
	return pools
}

// ParseDF parses `df` rows. The mount point may contain spaces.
func ParseDF(out string) []report.LogicalVolume {
	var vols []report.LogicalVolume
	for _, l := range skipHeader(lines(out), "Filesystem") {
		c := columns(l, 6)
		vols = append(vols, report.LogicalVolume{
			Filesystem: c[0],
			KBlocks:    c[1],
			Used:       c[2],
			Available:  c[3],
			UsePercent: c[4],
			MountPoint: c[5],
		})
	}
	return vols
}

// cpuFields maps top's abbreviations to report names, in report order.
var cpuFields = []struct{ abbrev, name string }{
	{"us", "user"},
	{"sy", "system"},
	{"ni", "niced"},
	{"id", "idle"},
	{"wa", "waiting"},
	{"hi", "hw_interrupt"},
	{"si", "sw_interrupt"},
	{"st", "stolen"},
}

// ParseTopCPU reads the "%Cpu(s):" line of `top -b -n1`.
func ParseTopCPU(out string) report.Values {
	var line string
	for _, l := range lines(out) {
		if strings.Contains(l, "Cpu") {
			line = l
			break
		}
	}
	_, body, ok := strings.Cut(line, ":")
	if !ok {
		return nil
	}

	found := make(map[string]float64)
	for _, part := range strings.Split(body, ",") {
		fields := strings.Fields(part)
		if len(fields) == 1 {
			// older procps: "1.6%us"
			if num, abbrev, ok := strings.Cut(fields[0], "%"); ok {
				fields = []string{num, abbrev}
			}
		}
		if len(fields) != 2 {
			continue
		}
		v, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			continue
		}
		found[fields[1]] = v
	}

	var vals report.Values
	for _, f := range cpuFields {
		if v, ok := found[f.abbrev]; ok {
			vals = append(vals, report.Field{Name: f.name, Value: v})
		}
	}
	return vals
}

// ParseLsblk builds the device tree from `lsblk`. Nesting comes from the
// width of the tree-drawing prefix: two runes per level.
func ParseLsblk(out string) report.Drives {
	type node struct {
		drive    report.Drive
		depth    int
		children []*node
	}
	var roots []*node
	var stack []*node

	for _, l := range skipHeader(lines(out), "NAME") {
		prefix := 0
		for _, r := range l {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				break
			}
			prefix++
		}
		depth := prefix / 2
		c := columns(string([]rune(l)[prefix:]), 7)
		n := &node{
			drive: report.Drive{Name: c[0], Size: c[3], Type: c[5], Mount: c[6]},
			depth: depth,
		}

		for len(stack) > 0 && stack[len(stack)-1].depth >= depth {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, n)
		} else {
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, n)
		}
		stack = append(stack, n)
	}

	var build func([]*node) report.Drives
	build = func(ns []*node) report.Drives {
		var ds report.Drives
		for _, n := range ns {
			d := n.drive
			d.Children = build(n.children)
			ds = append(ds, d)
		}
		return ds
	}
	return build(roots)
}

// ParseSmartHealth returns the verdict of `smartctl -H`, e.g. "PASSED".
func ParseSmartHealth(out string) string {
	for _, l := range lines(out) {
		if strings.Contains(l, "result") {
			if _, verdict, ok := strings.Cut(l, ":"); ok {
				return strings.TrimSpace(verdict)
			}
		}
	}
	return ""
}

// ParseSmartAttributes parses the attribute table of `smartctl -A`.
func ParseSmartAttributes(out string) []report.SmartAttribute {
	ls := lines(out)
	start := 0
	for i, l := range ls {
		if strings.HasPrefix(strings.TrimSpace(l), "ID#") {
			start = i + 1
			break
		}
	}

	var attrs []report.SmartAttribute
	for _, l := range ls[start:] {
		c := columns(l, 10)
		if _, err := strconv.Atoi(c[0]); err != nil {
			continue
		}
		attrs = append(attrs, report.SmartAttribute{
			ID: c[0], Name: c[1], Flag: c[2], Value: c[3], Worst: c[4],
			Thresh: c[5], Type: c[6], Updated: c[7], WhenFailed: c[8], RawValue: c[9],
		})
	}
	return attrs
}

// ParseProcesses parses `ps -A`.
func ParseProcesses(out string) []report.Process {
	var procs []report.Process
	for _, l := range skipHeader(lines(out), "PID") {
		c := columns(l, 4)
		procs = append(procs, report.Process{PID: c[0], TTY: c[1], Time: c[2], Cmd: c[3]})
	}
	return procs
}

// ParseUptime strips the "up " of `uptime -p`.
func ParseUptime(out string) string {
	return strings.TrimPrefix(strings.TrimSpace(out), "up ")
}
