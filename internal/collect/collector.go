// Package collect builds host reports from shell commands run locally or
// over SSH, or from a node_exporter endpoint.
package collect

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/rileyhilliard/whm/internal/errors"
	"github.com/rileyhilliard/whm/internal/logger"
	"github.com/rileyhilliard/whm/internal/report"
	"github.com/rileyhilliard/whm/internal/util"
)

//go:embed samples/*.txt
var samples embed.FS

// DefaultInterface is the interface whose counters are reported.
const DefaultInterface = "eth0"

// Collector builds reports by running commands through a Runner. Hosts
// without lm-sensors run in demo mode: sensors, disks, SMART data and the
// kernel log come from bundled samples.
type Collector struct {
	runner    Runner
	log       logger.Logger
	iface     string
	dmesgTail int
}

// Option configures a Collector.
type Option func(*Collector)

// WithInterface sets the network interface passed to ifconfig.
func WithInterface(name string) Option {
	return func(c *Collector) { c.iface = name }
}

// WithDmesgLines sets how many kernel log lines are kept.
func WithDmesgLines(n int) Option {
	return func(c *Collector) { c.dmesgTail = n }
}

// NewCollector creates a collector running commands through r.
func NewCollector(r Runner, log logger.Logger, opts ...Option) *Collector {
	if log == nil {
		log = logger.Noop()
	}
	c := &Collector{runner: r, log: log, iface: DefaultInterface, dmesgTail: 200}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchReport collects a full report.
func (c *Collector) FetchReport(ctx context.Context) (*report.Report, error) {
	return c.Collect(ctx, true)
}

// Collect builds a report. A partial report holds only the recorded
// sections: sensors, memory, logical volumes and CPU. Sections whose
// command fails are left out and logged.
func (c *Collector) Collect(ctx context.Context, full bool) (*report.Report, error) {
	probe, code, err := c.runner.Run(ctx, "sensors -u")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.WrapWithCode(err, errors.ErrExec,
			"Couldn't probe for sensors",
			"Check that the host accepts commands.")
	}

	s := &session{c: c, ctx: ctx, demo: code != 0}
	r := &report.Report{Demo: s.demo}
	if s.demo {
		c.log.Info("sensors unavailable (exit %d), using sample data", code)
	}

	if !s.demo {
		r.Sensors = ParseSensors(string(probe))
	} else if out, ok := s.output("sensors -u", "sensors.txt"); ok {
		r.Sensors = ParseSensors(out)
	}
	if out, ok := s.output("free", ""); ok {
		r.Memory = ParseFree(out)
	}
	if out, ok := s.output("df -P", "df.txt"); ok {
		r.LogicalVolumes = ParseDF(out)
	}
	if out, ok := s.output("top -b -n1", ""); ok {
		r.CPU = ParseTopCPU(out)
	}

	if full {
		if out, ok := s.output("uptime -p", ""); ok {
			r.Uptime = ParseUptime(out)
		}
		if out, ok := s.output("uname -v", ""); ok {
			r.OS = strings.TrimSpace(out)
		}
		if out, ok := s.output(fmt.Sprintf("dmesg | tail -n %d", c.dmesgTail), "dmesg.txt"); ok {
			r.Dmesg = out
		}
		if out, ok := s.output(fmt.Sprintf("ifconfig %s | tail -n +4", util.ShellQuote(c.iface)), ""); ok {
			r.Network = out
		}
		if out, ok := s.output("lsblk", "lsblk.txt"); ok {
			r.Drives = ParseLsblk(out)
			for i := range r.Drives {
				c.loadSmart(s, &r.Drives[i])
			}
		}
		if out, ok := s.output("ps -A", ""); ok {
			r.Processes = ParseProcesses(out)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r, nil
}

func (c *Collector) loadSmart(s *session, d *report.Drive) {
	if d.Type != "disk" {
		return
	}
	if out, ok := s.output("smartctl -H /dev/"+d.Name, "smart-health.txt"); ok {
		d.SmartHealth = ParseSmartHealth(out)
	}
	if out, ok := s.output("smartctl -A /dev/"+d.Name, "smart-attributes.txt"); ok {
		d.SmartAttributes = ParseSmartAttributes(out)
	}
}

// session is one collection pass.
type session struct {
	c    *Collector
	ctx  context.Context
	demo bool
}

// output runs cmd, or reads the sample in demo mode when one exists.
func (s *session) output(cmd, sample string) (string, bool) {
	if s.ctx.Err() != nil {
		return "", false
	}
	if s.demo && sample != "" {
		data, err := samples.ReadFile("samples/" + sample)
		if err != nil {
			s.c.log.Warn("sample %s: %v", sample, err)
			return "", false
		}
		return string(data), true
	}

	out, code, err := s.c.runner.Run(s.ctx, cmd)
	switch {
	case err != nil:
		if s.ctx.Err() == nil {
			s.c.log.Warn("%s: %s", cmd, errors.Summarize(err))
		}
		return "", false
	case code != 0:
		s.c.log.Warn("%s exited %d", cmd, code)
		return "", false
	}
	s.c.log.Debug("ran %s", cmd)
	return string(out), true
}
