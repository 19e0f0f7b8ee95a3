package collect

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/model"

	"github.com/rileyhilliard/whm/internal/errors"
	"github.com/rileyhilliard/whm/internal/logger"
	"github.com/rileyhilliard/whm/internal/report"
)

// cpuModes maps node_cpu_seconds_total modes to report names, in report
// order.
var cpuModes = []struct{ mode, name string }{
	{"user", "user"},
	{"system", "system"},
	{"nice", "niced"},
	{"idle", "idle"},
	{"iowait", "waiting"},
	{"irq", "hw_interrupt"},
	{"softirq", "sw_interrupt"},
	{"steal", "stolen"},
}

// NodeExporterSource builds reports from a node_exporter /metrics
// endpoint. CPU utilization is the share of each mode in the CPU time
// spent since the previous scrape; the first scrape measures since boot.
type NodeExporterSource struct {
	url    string
	client *http.Client
	log    logger.Logger

	mu   sync.Mutex
	prev map[string]float64
}

// NewNodeExporterSource creates a source scraping url.
func NewNodeExporterSource(url string, timeout time.Duration, log logger.Logger) *NodeExporterSource {
	if log == nil {
		log = logger.Noop()
	}
	return &NodeExporterSource{url: url, client: &http.Client{Timeout: timeout}, log: log}
}

// FetchReport scrapes the endpoint once.
func (s *NodeExporterSource) FetchReport(ctx context.Context) (*report.Report, error) {
	return s.Collect(ctx, true)
}

// Collect scrapes the endpoint. node_exporter has no process list or
// kernel log, so full only adds uptime and the kernel version.
func (s *NodeExporterSource) Collect(ctx context.Context, full bool) (*report.Report, error) {
	families, err := s.scrape(ctx)
	if err != nil {
		return nil, err
	}

	r := &report.Report{
		CPU:            s.cpu(families),
		Memory:         memoryPools(families),
		Sensors:        hwmonSensors(families),
		LogicalVolumes: filesystems(families),
	}
	if full {
		r.Uptime = uptime(families)
		if m := first(families, "node_uname_info"); m != nil {
			r.OS = label(m, "version")
		}
	}
	return r, nil
}

func (s *NodeExporterSource) scrape(ctx context.Context) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Invalid node_exporter URL %q", s.url),
			"Set backend.node_exporter_url to something like http://host:9100/metrics")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(err, "Couldn't query node_exporter")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, errors.New(errors.ErrTransport,
			fmt.Sprintf("node_exporter answered %s", resp.Status),
			"Check the URL points at the /metrics endpoint.")
	}

	parser := expfmt.NewTextParser(model.UTF8Validation)
	families, err := parser.TextToMetricFamilies(resp.Body)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrData,
			"Couldn't parse node_exporter metrics", "")
	}
	return families, nil
}

// cpu sums node_cpu_seconds_total per mode over all CPUs and converts the
// growth since the last scrape into percentages.
func (s *NodeExporterSource) cpu(families map[string]*dto.MetricFamily) report.Values {
	fam := families["node_cpu_seconds_total"]
	if fam == nil {
		return nil
	}
	totals := make(map[string]float64)
	for _, m := range fam.GetMetric() {
		totals[label(m, "mode")] += value(m)
	}

	s.mu.Lock()
	prev := s.prev
	s.prev = totals
	s.mu.Unlock()

	delta := make(map[string]float64, len(totals))
	var sum float64
	for mode, v := range totals {
		d := v - prev[mode]
		if d < 0 {
			// counter reset: fall back to the absolute value
			d = v
		}
		delta[mode] = d
		sum += d
	}
	if sum <= 0 {
		return nil
	}

	var vals report.Values
	for _, cm := range cpuModes {
		if _, ok := totals[cm.mode]; ok {
			vals = append(vals, report.Field{Name: cm.name, Value: round2(delta[cm.mode] / sum * 100)})
		}
	}
	return vals
}

// memoryPools reports Mem and Swap in kB, like free.
func memoryPools(families map[string]*dto.MetricFamily) report.MemoryPools {
	var pools report.MemoryPools
	add := func(name, totalMetric, freeMetric string) {
		total, ok1 := gauge(families, totalMetric)
		free, ok2 := gauge(families, freeMetric)
		if !ok1 || !ok2 {
			return
		}
		total, free = total/1024, free/1024
		used := total - free
		util := 0.0
		if total > 0 {
			util = round2(used / total * 100)
		}
		pools = append(pools, report.MemoryPool{Name: name, Values: report.Values{
			{Name: "total", Value: total},
			{Name: "used", Value: used},
			{Name: "free", Value: free},
			{Name: "utilization", Value: util},
		}})
	}
	add("Mem", "node_memory_MemTotal_bytes", "node_memory_MemAvailable_bytes")
	add("Swap", "node_memory_SwapTotal_bytes", "node_memory_SwapFree_bytes")
	return pools
}

// hwmonSensors groups temperatures by chip as <sensor>_input and
// <sensor>_crit readings.
func hwmonSensors(families map[string]*dto.MetricFamily) report.SensorDevices {
	type reading struct {
		name  string
		value float64
	}
	byChip := make(map[string][]reading)
	var chips []string

	collect := func(metric, suffix string) {
		for _, m := range families[metric].GetMetric() {
			chip := label(m, "chip")
			if _, seen := byChip[chip]; !seen {
				chips = append(chips, chip)
			}
			byChip[chip] = append(byChip[chip], reading{label(m, "sensor") + suffix, value(m)})
		}
	}
	collect("node_hwmon_temp_celsius", "_input")
	collect("node_hwmon_temp_crit_celsius", "_crit")

	sort.Strings(chips)
	var devices report.SensorDevices
	for i, chip := range chips {
		rs := byChip[chip]
		sort.SliceStable(rs, func(a, b int) bool { return rs[a].name < rs[b].name })
		dev := report.SensorDevice{Key: "device" + strconv.Itoa(i), Name: chip}
		for _, r := range rs {
			dev.Values = append(dev.Values, report.Field{Name: r.name, Value: r.value})
		}
		devices = append(devices, dev)
	}
	return devices
}

// filesystems reports one df-style row per mount point.
func filesystems(families map[string]*dto.MetricFamily) []report.LogicalVolume {
	avail := make(map[string]float64)
	for _, m := range families["node_filesystem_avail_bytes"].GetMetric() {
		avail[label(m, "mountpoint")] = value(m)
	}

	var vols []report.LogicalVolume
	for _, m := range families["node_filesystem_size_bytes"].GetMetric() {
		mount := label(m, "mountpoint")
		size := value(m) / 1024
		free := avail[mount] / 1024
		used := size - free
		pct := "-"
		if size > 0 {
			pct = strconv.Itoa(int(math.Ceil(used/size*100))) + "%"
		}
		vols = append(vols, report.LogicalVolume{
			Filesystem: label(m, "device"),
			KBlocks:    strconv.FormatFloat(size, 'f', 0, 64),
			Used:       strconv.FormatFloat(used, 'f', 0, 64),
			Available:  strconv.FormatFloat(free, 'f', 0, 64),
			UsePercent: pct,
			MountPoint: mount,
		})
	}
	sort.Slice(vols, func(i, j int) bool { return vols[i].MountPoint < vols[j].MountPoint })
	return vols
}

func uptime(families map[string]*dto.MetricFamily) string {
	now, ok1 := gauge(families, "node_time_seconds")
	boot, ok2 := gauge(families, "node_boot_time_seconds")
	if !ok1 || !ok2 || now < boot {
		return ""
	}
	return formatUptime(time.Duration(now-boot) * time.Second)
}

// formatUptime renders d the way `uptime -p` does, without the "up ".
func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	var parts []string
	plural := func(n int, unit string) {
		if n == 0 {
			return
		}
		if n == 1 {
			parts = append(parts, "1 "+unit)
			return
		}
		parts = append(parts, fmt.Sprintf("%d %ss", n, unit))
	}
	if days >= 7 {
		plural(days/7, "week")
		days %= 7
	}
	plural(days, "day")
	plural(hours, "hour")
	plural(minutes, "minute")
	if len(parts) == 0 {
		return "0 minutes"
	}
	return strings.Join(parts, ", ")
}

func first(families map[string]*dto.MetricFamily, name string) *dto.Metric {
	ms := families[name].GetMetric()
	if len(ms) == 0 {
		return nil
	}
	return ms[0]
}

func gauge(families map[string]*dto.MetricFamily, name string) (float64, bool) {
	m := first(families, name)
	if m == nil {
		return 0, false
	}
	return value(m), true
}

func value(m *dto.Metric) float64 {
	switch {
	case m.GetCounter() != nil:
		return m.GetCounter().GetValue()
	case m.GetGauge() != nil:
		return m.GetGauge().GetValue()
	default:
		return m.GetUntyped().GetValue()
	}
}

func label(m *dto.Metric, name string) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
