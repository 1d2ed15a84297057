package smoke

import (
	"fmt"
	"net"

	"github.com/datalust/seq-input-syslog/internal/buildenv"
)

// Format names the syslog wire format a case exercises.
type Format string

const (
	RFC3164 Format = "rfc3164"
	RFC5424 Format = "rfc5424"
)

// Case is one (transport, format) combination of the test matrix.
type Case struct {
	Transport buildenv.Transport
	Format    Format
}

func (c Case) String() string {
	return fmt.Sprintf("%s/%s", c.Transport, c.Format)
}

// DefaultMatrix covers the formats the daemon parses. The daemon listens on
// datagram sockets, so every case runs over UDP.
var DefaultMatrix = []Case{
	{Transport: buildenv.UDP, Format: RFC3164},
	{Transport: buildenv.UDP, Format: RFC5424},
}

// messages returns canonical sample messages for a format. The RFC 5424
// samples are examples 1 and 2 from the RFC itself.
func messages(f Format) []string {
	switch f {
	case RFC5424:
		return []string{
			"<34>1 2003-10-11T22:14:15.003Z mymachine.example.com su - ID47 - 'su root' failed for lonvick on /dev/pts/8",
			"<165>1 2003-08-24T05:14:15.000003-07:00 192.0.2.1 myproc 8710 - - %% It's time to make the do-nuts.",
		}
	default:
		return []string{
			"<34>Oct 11 22:14:15 mymachine su: 'su root' failed for lonvick on /dev/pts/8",
			"<13>Feb  5 17:32:18 10.0.0.99 Use the BFG!",
		}
	}
}

// NetDriver writes the sample messages to the subject container through its
// published host port. Datagram transports get one message per packet;
// stream transports get newline framing.
type NetDriver struct {
	Addr string
}

func (d NetDriver) Send(c Case) error {
	conn, err := net.Dial(string(c.Transport), d.Addr)
	if err != nil {
		return fmt.Errorf("dialing %s %s: %w", c.Transport, d.Addr, err)
	}
	defer conn.Close()

	for _, msg := range messages(c.Format) {
		payload := []byte(msg)
		if !c.Transport.Datagram() {
			payload = append(payload, '\n')
		}
		if _, err := conn.Write(payload); err != nil {
			return fmt.Errorf("sending %s message: %w", c.Format, err)
		}
	}
	return nil
}
