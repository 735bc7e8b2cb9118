package cli

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	resty "github.com/go-resty/resty/v2"
	"github.com/kritgpt/matstat/config"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	simulatedBaseline  = 90.0
	simulatedNoiseFrac = 0.002
)

type SimulateHandler struct {
	c *config.Config
}

func newSimulateHandler(c *config.Config) *SimulateHandler {
	return &SimulateHandler{c: c}
}

type simulatedSensor struct {
	ID     int     `json:"id"`
	Output float64 `json:"output"`
}

type simulatedBatch struct {
	Timestamp int64             `json:"timestamp"`
	Sensors   []simulatedSensor `json:"sensors"`
}

// generator produces readings around a constant baseline with gaussian
// noise.
type generator struct {
	sensors  int
	baseline float64
	noiseStd float64
	rng      *rand.Rand
}

func newGenerator(sensors int, seed int64) *generator {
	return &generator{
		sensors:  sensors,
		baseline: simulatedBaseline,
		noiseStd: simulatedBaseline * simulatedNoiseFrac,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// next returns the batch at elapsed time. The timestamp is in milliseconds
// since the start of the simulation.
func (g *generator) next(elapsed time.Duration) *simulatedBatch {
	b := &simulatedBatch{
		Timestamp: elapsed.Milliseconds(),
		Sensors:   make([]simulatedSensor, 0, g.sensors),
	}
	for id := 0; id < g.sensors; id++ {
		b.Sensors = append(b.Sensors, simulatedSensor{
			ID:     id,
			Output: g.baseline + g.rng.NormFloat64()*g.noiseStd,
		})
	}
	return b
}

type sessionStartedReply struct {
	SessionID int64 `json:"session_id"`
}

type messageReply struct {
	Message string `json:"message"`
}

// Simulate acts as a sensor device. It opens a session, streams batches
// through the public API and closes the session again.
func (h *SimulateHandler) Simulate(cmd *cobra.Command, args []string) {
	url, _ := cmd.Flags().GetString("url")
	sensors, _ := cmd.Flags().GetInt("sensors")
	rate, _ := cmd.Flags().GetFloat64("rate")
	duration, _ := cmd.Flags().GetDuration("duration")
	trainingType, _ := cmd.Flags().GetString("training-type")
	keepOpen, _ := cmd.Flags().GetBool("keep-open")

	useColoredLogs()

	if sensors <= 0 || rate <= 0 {
		log.Error("--sensors and --rate must be positive")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(url, "/")).
		SetTimeout(5 * time.Second)

	started, err := startSession(client, trainingType)
	if err != nil {
		log.Errorf("Failed to start session: %v", err)
		os.Exit(1)
	}

	n, err := stream(ctx, client, newGenerator(sensors, time.Now().UnixNano()), rate, duration)
	log.Infof("Sent %d batches", n)
	if err != nil {
		log.Errorf("Streaming stopped: %v", err)
	}

	if started && !keepOpen {
		if err := endSession(client); err != nil {
			log.Errorf("Failed to end session: %v", err)
			os.Exit(1)
		}
	}
}

// startSession returns false if a session was already active.
func startSession(client *resty.Client, trainingType string) (bool, error) {
	reply := &sessionStartedReply{}
	resp, err := client.R().
		SetBody(map[string]string{"trainingType": trainingType}).
		SetResult(reply).
		SetError(&messageReply{}).
		Post("/api/sessions/start")
	if err != nil {
		return false, err
	}

	switch resp.StatusCode() {
	case http.StatusCreated:
		log.WithField("session_id", reply.SessionID).Info("Session started")
		return true, nil
	case http.StatusConflict:
		log.Warn("A session is already active, streaming into it")
		return false, nil
	default:
		return false, replyError(resp)
	}
}

func endSession(client *resty.Client) error {
	reply := &messageReply{}
	resp, err := client.R().
		SetResult(reply).
		SetError(&messageReply{}).
		Post("/api/sessions/end")
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return replyError(resp)
	}

	log.Info(reply.Message)
	return nil
}

func stream(ctx context.Context, client *resty.Client, g *generator, rate float64, duration time.Duration) (int, error) {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / rate))
	defer ticker.Stop()

	start := time.Now()
	sent := 0
	for {
		select {
		case <-ctx.Done():
			return sent, nil
		case now := <-ticker.C:
			elapsed := now.Sub(start)
			if duration > 0 && elapsed > duration {
				return sent, nil
			}

			resp, err := client.R().
				SetBody(g.next(elapsed)).
				SetError(&messageReply{}).
				Post("/api/sensor_data")
			if err != nil {
				log.Warnf("Failed to send data: %v", err)
				continue
			}
			if resp.StatusCode() == http.StatusBadRequest {
				// The session was closed by someone else
				return sent, replyError(resp)
			}
			if resp.StatusCode() != http.StatusCreated {
				log.Warnf("Sending data failed: %v", replyError(resp))
				continue
			}
			sent++
		}
	}
}

func replyError(resp *resty.Response) error {
	if reply, ok := resp.Error().(*messageReply); ok && reply.Message != "" {
		return errors.Errorf("%s: %s", resp.Status(), reply.Message)
	}
	return errors.Errorf("unexpected reply %s", resp.Status())
}
