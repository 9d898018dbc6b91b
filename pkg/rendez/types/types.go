package types

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
)

const (
	HostPath  = "/api/host"
	JoinPath  = "/api/join"
	IndexPath = "/"

	TargetParam = "target"
	PortParam   = "port"

	// AckMessage is sent to a host once its declaration has been accepted
	AckMessage = "ok"
	// JoinResponse is returned for every join request, whether it matched a host or not
	JoinResponse = "ok"
	Banner       = "this website helps you nat punch"

	openVerb = "open"
)

var declarationPattern = regexp.MustCompile(`^server_port: *(\d{2,5})$`)

// ParseDeclaration extracts the port a host declares in its first message, as it was written
func ParseDeclaration(msg string) (string, bool) {
	match := declarationPattern.FindStringSubmatch(msg)
	if match == nil {
		return "", false
	}

	return match[1], true
}

func FormatDeclaration(port int) string {
	return fmt.Sprintf("server_port: %d", port)
}

// Instruction tells a host to punch towards a joiner
type Instruction struct {
	IP   string
	Port int
}

func (i Instruction) String() string {
	return fmt.Sprintf("%s %s %d", openVerb, i.IP, i.Port)
}

// Addr is the joiner address in host:port form, brackets included for IPv6
func (i Instruction) Addr() string {
	return net.JoinHostPort(i.IP, strconv.Itoa(i.Port))
}

func ParseInstruction(msg string) (Instruction, bool) {
	fields := strings.Split(msg, " ")
	if len(fields) != 3 || fields[0] != openVerb {
		return Instruction{}, false
	}

	port, err := strconv.Atoi(fields[2])
	if err != nil || port <= 0 || port > 65535 {
		return Instruction{}, false
	}

	return Instruction{IP: fields[1], Port: port}, true
}
