package display

import (
	"bufio"
	"context"
	"io"
	"log"
	"strings"
	"sync"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/vr_controls/internal/orientation"
)

// SerialProvider enumerates head trackers attached to serial ports. Ports
// that fail to open are skipped.
type SerialProvider struct {
	ports    []string
	baudRate int
	open     func(serial.OpenOptions) (io.ReadWriteCloser, error)

	mu       sync.Mutex
	displays map[string]*serialDisplay
}

// NewSerialProvider returns a provider for the given port names.
func NewSerialProvider(ports []string, baudRate int) *SerialProvider {
	return &SerialProvider{
		ports:    ports,
		baudRate: baudRate,
		open:     serial.Open,
		displays: make(map[string]*serialDisplay),
	}
}

func (p *SerialProvider) GetDisplays(ctx context.Context) ([]Display, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []Display
	for _, name := range p.ports {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if d, ok := p.displays[name]; ok && d.IsConnected() {
			out = append(out, d)
			continue
		}

		opts := serial.OpenOptions{
			PortName:              name,
			BaudRate:              uint(p.baudRate),
			DataBits:              8,
			StopBits:              1,
			MinimumReadSize:       1,
			ParityMode:            serial.PARITY_NONE,
			InterCharacterTimeout: 0,
		}
		port, err := p.open(opts)
		if err != nil {
			log.Printf("display: serial port %s unavailable: %v", name, err)
			continue
		}
		log.Printf("display: serial tracker opened on %s at %d baud", name, p.baudRate)

		d := newSerialDisplay(name, port)
		p.displays[name] = d
		out = append(out, d)
	}
	return out, nil
}

// Close closes every opened port.
func (p *SerialProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for _, d := range p.displays {
		if err := d.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type serialDisplay struct {
	name string
	port io.ReadWriteCloser

	mu        sync.RWMutex
	pose      orientation.Pose
	stage     *StageParameters
	connected bool
	done      chan struct{}
}

func newSerialDisplay(name string, port io.ReadWriteCloser) *serialDisplay {
	d := &serialDisplay{
		name:      name,
		port:      port,
		connected: true,
		done:      make(chan struct{}),
	}
	go d.readLoop()
	return d
}

func (d *serialDisplay) DisplayName() string { return d.name }

func (d *serialDisplay) StageParameters() *StageParameters {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.stage
}

func (d *serialDisplay) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// GetPose returns the latest pose sentence received from the tracker.
func (d *serialDisplay) GetPose() orientation.Pose {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pose
}

func (d *serialDisplay) ResetPose() {
	if _, err := io.WriteString(d.port, encodeSentence(resetSentence)); err != nil {
		log.Printf("display %s: reset write error: %v", d.name, err)
	}
}

func (d *serialDisplay) Close() error {
	err := d.port.Close()
	<-d.done
	return err
}

func (d *serialDisplay) readLoop() {
	defer close(d.done)
	reader := bufio.NewReader(d.port)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			log.Printf("display %s: serial read error: %v", d.name, err)
			d.mu.Lock()
			d.connected = false
			d.mu.Unlock()
			return
		}

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			// partial sentences right after opening the port are common
			continue
		}
		d.handleSentence(sentence)
	}
}

func (d *serialDisplay) handleSentence(s nmea.Sentence) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch m := s.(type) {
	case HMD:
		d.pose = orientation.Pose{Orientation: m.Orientation, Position: m.Position}
	case STG:
		stage := m.Stage
		d.stage = &stage
	default:
		// other talkers share the line sometimes; ignore them
	}
}
