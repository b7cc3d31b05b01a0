package scanner

import "sort"

// wellKnownServices maps the standard service ports to display names.
var wellKnownServices = map[int]string{
	20:   "FTP Data",
	21:   "FTP",
	22:   "SSH",
	23:   "Telnet",
	25:   "SMTP",
	53:   "DNS",
	80:   "HTTP",
	110:  "POP3",
	111:  "RPC",
	135:  "MSRPC",
	139:  "NetBIOS",
	143:  "IMAP",
	443:  "HTTPS",
	445:  "SMB",
	993:  "IMAPS",
	995:  "POP3S",
	1723: "PPTP",
	3306: "MySQL",
	3389: "RDP",
	5900: "VNC",
	8080: "HTTP-Proxy",
	8443: "HTTPS-Alt",
}

// backdoorPorts are conventionally used by backdoors and remote-access tooling.
var backdoorPorts = map[int]bool{
	4444:  true, // Metasploit
	5555:  true, // ADB / misc RATs
	6666:  true,
	6667:  true, // IRC botnets
	12345: true, // NetBus
	31337: true, // Back Orifice
}

// ServiceName returns the well-known service for port, or "" if none.
func ServiceName(port int) string {
	return wellKnownServices[port]
}

// WellKnownPorts returns the well-known port table in ascending order.
func WellKnownPorts() []int {
	ports := make([]int, 0, len(wellKnownServices))
	for port := range wellKnownServices {
		ports = append(ports, port)
	}
	sort.Ints(ports)
	return ports
}

// IsSuspicious reports whether an open port warrants attention: either a
// known backdoor port or a port with no recognized service.
func IsSuspicious(port int) bool {
	if backdoorPorts[port] {
		return true
	}
	_, known := wellKnownServices[port]
	return !known
}
