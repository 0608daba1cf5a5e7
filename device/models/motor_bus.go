package models

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lamp/communication"
	"lamp/device"
	"lamp/logging"
)

var logger = logging.New("models")

const (
	DefaultMotorPort = "/dev/ttyACM0"
	bridgeTimeout    = 500 * time.Millisecond
)

// MotorBusDriver drives the lamp's servo bus through the hardware bridge.
type MotorBusDriver struct {
	comm communication.Communicator
	port string
}

// NewMotorBusDriver drives port through comm. An empty port uses DefaultMotorPort.
func NewMotorBusDriver(comm communication.Communicator, port string) *MotorBusDriver {
	if port == "" {
		port = DefaultMotorPort
	}
	return &MotorBusDriver{comm: comm, port: port}
}

func newMotorBusFromConfig(cfg map[string]any) (device.Driver, error) {
	url, err := requiredString(cfg, KeyBridgeURL)
	if err != nil {
		return nil, err
	}
	port, err := stringParam(cfg, KeyPort, DefaultMotorPort)
	if err != nil {
		return nil, err
	}
	return NewMotorBusDriver(communication.NewBridgeClient(url), port), nil
}

func (d *MotorBusDriver) Port() string { return d.port }

// Connect checks that the bridge has the port open and enables torque.
func (d *MotorBusDriver) Connect() error {
	ctx, cancel := context.WithTimeout(context.Background(), bridgeTimeout)
	defer cancel()

	statuses, err := d.comm.GetAllPortStatuses(ctx)
	if err != nil {
		return fmt.Errorf("%w: bridge unreachable: %v", device.ErrConnection, err)
	}
	if !statuses[d.port] {
		return fmt.Errorf("%w: motor port %s is not active on the bridge", device.ErrConnection, d.port)
	}
	if err := d.comm.SetTorque(ctx, d.port, true); err != nil {
		return fmt.Errorf("%w: enable torque: %v", device.ErrConnection, err)
	}

	logger.With(zap.String("port", d.port)).Info("Motor bus connected")
	return nil
}

// Disconnect releases torque so the arm can be moved by hand.
func (d *MotorBusDriver) Disconnect() error {
	return d.ReleaseTorque()
}

// ReleaseTorque lets the joints move freely. Positions can still be read.
func (d *MotorBusDriver) ReleaseTorque() error {
	ctx, cancel := context.WithTimeout(context.Background(), bridgeTimeout)
	defer cancel()

	if err := d.comm.SetTorque(ctx, d.port, false); err != nil {
		return fmt.Errorf("release torque on %s: %w", d.port, err)
	}
	logger.With(zap.String("port", d.port)).Info("Motor torque released")
	return nil
}

func (d *MotorBusDriver) Command(state device.State) error {
	ctx, cancel := context.WithTimeout(context.Background(), bridgeTimeout)
	defer cancel()
	return d.comm.SendPositions(ctx, d.port, state)
}

func (d *MotorBusDriver) Observe() (device.State, error) {
	ctx, cancel := context.WithTimeout(context.Background(), bridgeTimeout)
	defer cancel()

	positions, err := d.comm.ReadPositions(ctx, d.port)
	if err != nil {
		return nil, err
	}
	return device.State(positions), nil
}
