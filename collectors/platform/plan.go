// Package platform describes what the collectors run on a given operating
// system: command steps per section and where browser history stores live.
package platform

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"livecollect/collectors"
	"livecollect/collectors/runner"
)

// Section keys accepted by Override.
const (
	SectionSystem    = "system"
	SectionDrivers   = "drivers"
	SectionUsers     = "users"
	SectionNetwork   = "network"
	SectionListening = "listening"
)

// Limits bound the size of queries issued by the plan.
type Limits struct {
	LogonEvents int
}

// BrowserLocations are the history stores BrowserArtifacts inspects.
type BrowserLocations struct {
	Chrome         string
	Edge           string
	FirefoxProfile string
}

type Plan struct {
	OS string

	System []collectors.Step
	// ProcessList, when set, produces a Node,CommandLine,ExecutablePath,
	// ParentProcessId,ProcessId listing. When empty the native lister is used.
	ProcessList runner.Command
	Drivers     []collectors.Step
	Users       []collectors.Step
	Network     []collectors.Step
	Listening   []collectors.Step

	Browsers BrowserLocations
}

// ForOS returns the plan for goos. getenv resolves profile roots.
func ForOS(goos string, getenv func(string) string, limits Limits) Plan {
	if limits.LogonEvents <= 0 {
		limits.LogonEvents = 200
	}
	if goos == "windows" {
		return Windows(getenv, limits)
	}
	return Unix(goos, getenv, limits)
}

// Override replaces the steps of one section.
func (p *Plan) Override(section string, steps []collectors.Step) error {
	switch section {
	case SectionSystem:
		p.System = steps
	case SectionDrivers:
		p.Drivers = steps
	case SectionUsers:
		p.Users = steps
	case SectionNetwork:
		p.Network = steps
	case SectionListening:
		p.Listening = steps
	default:
		return errors.Errorf("unknown section %q (want one of %v)", section, Sections())
	}
	return nil
}

// Sections lists the keys Override accepts.
func Sections() []string {
	s := []string{SectionSystem, SectionDrivers, SectionUsers, SectionNetwork, SectionListening}
	sort.Strings(s)
	return s
}

func envOr(getenv func(string) string, key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

func Windows(getenv func(string) string, limits Limits) Plan {
	local := envOr(getenv, "LOCALAPPDATA", `C:\Users\Default\AppData\Local`)
	profile := envOr(getenv, "USERPROFILE", `C:\Users\Default`)

	logons := fmt.Sprintf("Get-WinEvent -FilterHashtable @{LogName='Security'; Id=4624,4634} -MaxEvents %d | "+
		"Select TimeCreated,Id,@{n='Account';e={$_.Properties[5].Value}} | Format-Table -AutoSize", limits.LogonEvents)

	return Plan{
		OS: "windows",
		System: []collectors.Step{
			{Header: "systeminfo", Cmd: runner.Argv("systeminfo")},
			{Header: "wmic bios", Cmd: runner.Argv("wmic", "bios", "get", "Manufacturer,Name,SMBIOSBIOSVersion,SerialNumber,ReleaseDate", "/format:list")},
			{Header: "wmic baseboard", Cmd: runner.Argv("wmic", "baseboard", "get", "Manufacturer,Product,SerialNumber,Version", "/format:list")},
			{Header: "CPU (wmic cpu)", Cmd: runner.Argv("wmic", "cpu", "get", "Name,NumberOfCores,NumberOfLogicalProcessors,MaxClockSpeed", "/format:list")},
			{Header: "Memory (wmic computersystem)", Cmd: runner.Argv("wmic", "computersystem", "get", "TotalPhysicalMemory,Model", "/format:list")},
		},
		ProcessList: runner.Argv("wmic", "process", "get", "ProcessId,ExecutablePath,ParentProcessId,CommandLine", "/format:csv"),
		Drivers: []collectors.Step{
			{Header: "driverquery /v", Cmd: runner.Argv("driverquery", "/v")},
			{Header: "wmic service", Cmd: runner.Argv("wmic", "service", "get", "Name,DisplayName,State,StartMode,PathName", "/format:csv")},
		},
		Users: []collectors.Step{
			{Header: "local users (net user)", Cmd: runner.Argv("net", "user")},
			{Header: "wmic useraccount", Cmd: runner.Argv("wmic", "useraccount", "get", "Name,SID,Disabled,Lockout", "/format:csv")},
			{
				Header: fmt.Sprintf("Recent Security log events (4624 logon, 4634 logoff) via PowerShell (last %d)", limits.LogonEvents),
				Cmd:    runner.Argv("powershell", "-NoProfile", "-Command", logons),
			},
		},
		Network: []collectors.Step{
			{Header: "netstat -ano", Cmd: runner.Argv("netstat", "-ano")},
			{Header: "route print", Cmd: runner.Argv("route", "print")},
			{Header: "arp -a", Cmd: runner.Argv("arp", "-a")},
			{Header: "ipconfig /displaydns", Cmd: runner.Argv("ipconfig", "/displaydns")},
		},
		Listening: []collectors.Step{
			{Header: "netstat -abn (may require Admin)", Cmd: runner.Argv("netstat", "-abn")},
		},
		Browsers: BrowserLocations{
			Chrome:         filepath.Join(local, "Google", "Chrome", "User Data", "Default", "History"),
			Edge:           filepath.Join(local, "Microsoft", "Edge", "User Data", "Default", "History"),
			FirefoxProfile: filepath.Join(profile, "AppData", "Roaming", "Mozilla", "Firefox", "Profiles"),
		},
	}
}

func Unix(goos string, getenv func(string) string, limits Limits) Plan {
	home := envOr(getenv, "HOME", "/root")
	config := envOr(getenv, "XDG_CONFIG_HOME", filepath.Join(home, ".config"))

	return Plan{
		OS: goos,
		System: []collectors.Step{
			{Header: "uname -a", Cmd: runner.Argv("uname", "-a")},
			{Header: "os-release", Cmd: runner.Argv("cat", "/etc/os-release")},
			{Header: "CPU (lscpu)", Cmd: runner.Argv("lscpu")},
			{Header: "Memory (free -b)", Cmd: runner.Argv("free", "-b")},
			{Header: "firmware (dmidecode -t bios,baseboard,system)", Cmd: runner.Argv("dmidecode", "-t", "bios,baseboard,system")},
		},
		Drivers: []collectors.Step{
			{Header: "lsmod", Cmd: runner.Argv("lsmod")},
			{Header: "systemctl services", Cmd: runner.Argv("systemctl", "list-units", "--type=service", "--all", "--no-pager")},
			{Header: "enabled unit files", Cmd: runner.Argv("systemctl", "list-unit-files", "--state=enabled", "--no-pager")},
			{Header: "scheduled jobs (cron)", Cmd: runner.Argv("ls", "-la", "/etc/crontab", "/etc/cron.d", "/etc/cron.hourly", "/etc/cron.daily", "/etc/cron.weekly", "/etc/cron.monthly")},
		},
		Users: []collectors.Step{
			{Header: "local accounts (getent passwd)", Cmd: runner.Argv("getent", "passwd")},
			{Header: "who -a", Cmd: runner.Argv("who", "-a")},
			{
				Header: fmt.Sprintf("Recent logon/logoff records (last, %d entries)", limits.LogonEvents),
				Cmd:    runner.Argv("last", "-F", "-n", fmt.Sprint(limits.LogonEvents)),
			},
		},
		Network: []collectors.Step{
			{Header: "ss -tunap", Cmd: runner.Argv("ss", "-tunap")},
			{Header: "ip route", Cmd: runner.Argv("ip", "route")},
			{Header: "ip neigh", Cmd: runner.Argv("ip", "neigh")},
			{Header: "resolvectl show-cache", Cmd: runner.Argv("resolvectl", "show-cache")},
		},
		Listening: []collectors.Step{
			{Header: "ss -tulpen (may require root)", Cmd: runner.Argv("ss", "-tulpen")},
		},
		Browsers: BrowserLocations{
			Chrome:         filepath.Join(config, "google-chrome", "Default", "History"),
			Edge:           filepath.Join(config, "microsoft-edge", "Default", "History"),
			FirefoxProfile: filepath.Join(home, ".mozilla", "firefox"),
		},
	}
}
