package naoqi

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/book-expert/logger"
	"github.com/google/uuid"
)

// ServiceName is the fixed backend service the bridge binds to.
const ServiceName = "ALTextToSpeech"

// Methods exposed by the device gateway.
const (
	methodAttach = "attach"
	methodSay    = "say"
)

// DialTimeout bounds proxy construction. Individual calls carry no timeout:
// a hung device blocks that request until the device answers (documented
// limitation of the bridge, matching the no-retry design).
const DialTimeout = 10 * time.Second

// Static errors.
var (
	// ErrConnect indicates the proxy could not be constructed against the
	// device gateway.
	ErrConnect = errors.New("failed to connect ALTextToSpeech proxy")
	// ErrCallFailed indicates the gateway reported a call failure.
	ErrCallFailed = errors.New("backend call failed")
	// ErrBadReply indicates the gateway answered with an unparsable frame.
	ErrBadReply = errors.New("malformed gateway reply")
)

// callFrame is one request on the gateway wire: newline-delimited JSON over
// the persistent connection.
type callFrame struct {
	ID        string   `json:"id"`
	Service   string   `json:"service"`
	Method    string   `json:"method"`
	Args      []string `json:"args,omitempty"`
	Subscribe bool     `json:"subscribe"`
}

type replyFrame struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Proxy is the single live handle to the robot's ALTextToSpeech service.
// It is created once at startup, owned for the process lifetime and never
// recreated. The gateway connection is not safe for concurrent use, so a
// mutex serializes every call.
type Proxy struct {
	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	log    *logger.Logger
}

// Dial opens the persistent gateway connection and attaches to the
// ALTextToSpeech service with event subscription disabled. Any failure is
// a ConnectError and fatal to startup.
func Dial(host string, port int, log *logger.Logger) (*Proxy, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	conn, err := net.DialTimeout("tcp", addr, DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrConnect, addr, err)
	}

	proxy := &Proxy{
		mu:     sync.Mutex{},
		conn:   conn,
		reader: bufio.NewReader(conn),
		log:    log,
	}

	// Attach selects the non-subscribing connection variant explicitly.
	attachErr := proxy.call(methodAttach, nil)
	if attachErr != nil {
		closeErr := conn.Close()
		if closeErr != nil {
			log.Warn("Failed to close gateway connection after attach failure: %v", closeErr)
		}

		return nil, fmt.Errorf("%w: %s: %s", ErrConnect, addr, attachErr)
	}

	log.System("%s proxy ready (%s:%d)", ServiceName, host, port)

	return proxy, nil
}

// Say forwards one utterance, already normalized to UTF-8, to the device.
// The call blocks until the device acknowledges it; there is no timeout and
// no retry.
func (p *Proxy) Say(text []byte) error {
	return p.call(methodSay, []string{string(text)})
}

func (p *Proxy) call(method string, args []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	frame := callFrame{
		ID:        uuid.NewString(),
		Service:   ServiceName,
		Method:    method,
		Args:      args,
		Subscribe: false,
	}

	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("failed to marshal %s frame: %w", method, err)
	}

	_, err = p.conn.Write(append(payload, '\n'))
	if err != nil {
		return fmt.Errorf("failed to send %s frame: %w", method, err)
	}

	line, err := p.reader.ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("failed to read %s reply: %w", method, err)
	}

	var reply replyFrame

	err = json.Unmarshal(line, &reply)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBadReply, err)
	}

	if !reply.OK {
		return fmt.Errorf("%w: %s: %s", ErrCallFailed, method, reply.Error)
	}

	return nil
}
