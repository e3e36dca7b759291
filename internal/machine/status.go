package machine

import (
	"strconv"
	"strings"
)

// Status is the key/value block `machinectl status` prints above the
// machine's process tree.
type Status struct {
	Since     string   `json:"since,omitempty"`
	Leader    int      `json:"leader,omitempty"`
	Root      string   `json:"root,omitempty"`
	Iface     string   `json:"iface,omitempty"`
	Addresses []string `json:"addresses,omitempty"`
	OS        string   `json:"os,omitempty"`
	UIDShift  string   `json:"uid_shift,omitempty"`
	Unit      string   `json:"unit,omitempty"`
}

// treeMarkers start the lines of the process tree below Unit.
const treeMarkers = "|`├└│"

// parseStatus reads the status block. The header line, the Service key and
// everything from the process tree on are ignored; a value continued on
// further lines (several addresses) collects every line.
func parseStatus(out string) *Status {
	values := make(map[string][]string)
	var key string

	for _, line := range strings.Split(out, "\n") {
		// The header "name(machine-id)" is not indented.
		if line == "" || (line[0] != ' ' && line[0] != '\t') {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if k, v, ok := statusField(trimmed); ok {
			key = k
			values[key] = []string{v}
			continue
		}
		if key == "" {
			continue
		}
		if strings.ContainsAny(trimmed, treeMarkers) {
			break
		}
		values[key] = append(values[key], trimmed)
	}

	first := func(k string) string {
		if v := values[k]; len(v) > 0 {
			return v[0]
		}
		return ""
	}

	st := &Status{
		Since:     first("Since"),
		Root:      first("Root"),
		Iface:     first("Iface"),
		Addresses: values["Address"],
		OS:        first("OS"),
		UIDShift:  first("UID Shift"),
		Unit:      first("Unit"),
	}
	// "1234 (systemd)"
	if fields := strings.Fields(first("Leader")); len(fields) > 0 {
		st.Leader, _ = strconv.Atoi(fields[0])
	}
	return st
}

// statusField splits "Key: value". Keys are words of letters.
func statusField(line string) (string, string, bool) {
	i := strings.Index(line, ": ")
	if i <= 0 {
		return "", "", false
	}
	key := line[:i]
	for _, r := range key {
		if r != ' ' && (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return "", "", false
		}
	}
	return key, strings.TrimSpace(line[i+2:]), true
}
