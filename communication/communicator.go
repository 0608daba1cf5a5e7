package communication

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"lamp/define"
	"lamp/logging"
)

var logger = logging.New("bridge")

// statusTimeout bounds the bridge health probe.
const statusTimeout = time.Second

// MotorFrame carries joint positions for the motor bus on one serial port.
type MotorFrame struct {
	Port      string             `json:"port"`
	Positions map[string]float64 `json:"positions"`
}

// TorqueRequest switches torque on a motor port.
type TorqueRequest struct {
	Port    string `json:"port"`
	Enabled bool   `json:"enabled"`
}

// PixelFrame carries one RGB triple per LED of a strip.
type PixelFrame struct {
	Strip  string     `json:"strip"`
	Pixels [][3]uint8 `json:"pixels"`
}

// Communicator talks to the hardware bridge service, which owns the serial
// motor bus and the LED strip.
type Communicator interface {
	// SendPositions writes goal positions to the motors on port.
	SendPositions(ctx context.Context, port string, positions map[string]float64) error

	// ReadPositions reads present positions from the motors on port.
	ReadPositions(ctx context.Context, port string) (map[string]float64, error)

	// SetTorque enables or releases the motors on port.
	SetTorque(ctx context.Context, port string, enabled bool) error

	// SendPixels writes a full pixel frame to strip.
	SendPixels(ctx context.Context, strip string, pixels [][3]uint8) error

	// GetAllPortStatuses reports which serial ports and strips the bridge has open.
	GetAllPortStatuses(ctx context.Context) (map[string]bool, error)

	SetServiceURL(url string)

	IsConnected() bool
}

// BridgeClient implements Communicator over the bridge's JSON HTTP API.
type BridgeClient struct {
	mu         sync.RWMutex
	serviceURL string
	client     *http.Client
}

// NewBridgeClient talks to the bridge at serviceURL.
func NewBridgeClient(serviceURL string) *BridgeClient {
	return &BridgeClient{
		serviceURL: strings.TrimRight(serviceURL, "/"),
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *BridgeClient) baseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serviceURL
}

func (c *BridgeClient) SetServiceURL(u string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.serviceURL = strings.TrimRight(u, "/")
}

func (c *BridgeClient) post(ctx context.Context, path string, body any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+path, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("bridge request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("bridge returned %d for %s: %s", resp.StatusCode, path, strings.TrimSpace(string(msg)))
	}
	return nil
}

// get decodes the envelope of a GET response into data.
func (c *BridgeClient) get(ctx context.Context, path string, data any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("bridge request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge returned %d for %s", resp.StatusCode, path)
	}

	envelope := define.ApiResponse{Data: data}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	if envelope.Status != "" && envelope.Status != "success" {
		return fmt.Errorf("bridge error for %s: %s", path, envelope.Error)
	}
	return nil
}

func (c *BridgeClient) SendPositions(ctx context.Context, port string, positions map[string]float64) error {
	return c.post(ctx, "/api/motors", MotorFrame{Port: port, Positions: positions})
}

func (c *BridgeClient) ReadPositions(ctx context.Context, port string) (map[string]float64, error) {
	var data struct {
		Positions map[string]float64 `json:"positions"`
	}
	if err := c.get(ctx, "/api/motors?port="+url.QueryEscape(port), &data); err != nil {
		return nil, err
	}
	return data.Positions, nil
}

func (c *BridgeClient) SetTorque(ctx context.Context, port string, enabled bool) error {
	return c.post(ctx, "/api/motors/torque", TorqueRequest{Port: port, Enabled: enabled})
}

func (c *BridgeClient) SendPixels(ctx context.Context, strip string, pixels [][3]uint8) error {
	return c.post(ctx, "/api/leds", PixelFrame{Strip: strip, Pixels: pixels})
}

func (c *BridgeClient) GetAllPortStatuses(ctx context.Context) (map[string]bool, error) {
	var data struct {
		Ports map[string]struct {
			Active bool `json:"active"`
		} `json:"ports"`
	}
	if err := c.get(ctx, "/api/status", &data); err != nil {
		return nil, err
	}

	result := make(map[string]bool, len(data.Ports))
	for name, st := range data.Ports {
		result[name] = st.Active
	}
	return result, nil
}

func (c *BridgeClient) IsConnected() bool {
	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()
	if _, err := c.GetAllPortStatuses(ctx); err != nil {
		logger.With(zap.String("url", c.baseURL()), zap.Error(err)).Debug("Bridge not reachable")
		return false
	}
	return true
}
