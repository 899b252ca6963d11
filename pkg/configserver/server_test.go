package configserver

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/departures-board/pkg/board"
	"github.com/travigo/departures-board/pkg/config"
	"github.com/travigo/departures-board/pkg/scheduler"
	"github.com/travigo/departures-board/pkg/status"
)

type fakeController struct {
	events []scheduler.Event
	full   bool
}

func (f *fakeController) Post(event scheduler.Event) bool {
	if f.full {
		return false
	}
	f.events = append(f.events, event)

	return true
}

func newTestServer(t *testing.T, publish bool) (*Server, *fakeController, *config.Store) {
	settings := config.Default()
	settings.Rail.CRS = "BTN"
	settings.Server.ControlBurst = 3
	settings.Server.ControlRate = 0.001
	store := config.NewStore("", settings)

	statusStore := status.NewMemory()
	if publish {
		departures := board.New()
		departures.SetLocation("Brighton")
		departures.PlatformAvailable = true
		departures.Departures.Append(board.Departure{Destination: "London Victoria", ScheduledTime: "10:04", Platform: "5", Operator: "Southern"})
		departures.AddMessage("Lifts are out of order at this station.")

		require.NoError(t, statusStore.Publish(context.Background(), status.Snapshot{
			Mode:      "rail",
			Result:    "SUCCESS",
			Successes: 4,
			Board:     departures,
			Firmware:  status.Firmware{Running: "2.0", Latest: "v2.1", Available: true},
			UpdatedAt: time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC),
		}))
	}

	controller := &fakeController{}
	server := New(Options{Store: store, Status: statusStore, Controller: controller, Version: "2.0"})

	return server, controller, store
}

func request(t *testing.T, server *Server, method string, path string, body string) (int, map[string]interface{}) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := server.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, jsoniter.Unmarshal(data, &decoded), string(data))

	return resp.StatusCode, decoded
}

func TestInfo(t *testing.T) {
	server, _, _ := newTestServer(t, true)

	code, body := request(t, server, "GET", "/info", "")
	assert.Equal(t, 200, code)
	assert.Equal(t, "2.0", body["version"])
	assert.Equal(t, "SUCCESS", body["result"])
	assert.NotContains(t, body, "successes")

	_, body = request(t, server, "GET", "/info?detail=true", "")
	assert.Equal(t, float64(4), body["successes"])
}

func TestInfoBeforePublish(t *testing.T) {
	server, _, _ := newTestServer(t, false)

	code, body := request(t, server, "GET", "/info", "")
	assert.Equal(t, 503, code)
	assert.Contains(t, body, "error")

	code, body = request(t, server, "GET", "/firmware", "")
	assert.Equal(t, 200, code)
	assert.Equal(t, "2.0", body["running"])
}

func TestBoard(t *testing.T) {
	server, _, _ := newTestServer(t, true)

	code, body := request(t, server, "GET", "/board", "")
	assert.Equal(t, 200, code)
	assert.Equal(t, "Brighton", body["location"])
	assert.NotContains(t, body, "platform_available")

	departures := body["departures"].([]interface{})
	require.Len(t, departures, 1)
	departure := departures[0].(map[string]interface{})
	assert.Equal(t, "London Victoria", departure["Destination"])
	assert.NotContains(t, departure, "Operator")
	assert.Equal(t, []interface{}{"Lifts are out of order at this station."}, body["messages"])

	_, body = request(t, server, "GET", "/board?detail=true", "")
	assert.Equal(t, true, body["platform_available"])
	departure = body["departures"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Southern", departure["Operator"])
}

func TestFirmware(t *testing.T) {
	server, _, _ := newTestServer(t, true)

	code, body := request(t, server, "GET", "/firmware", "")
	assert.Equal(t, 200, code)
	assert.Equal(t, "v2.1", body["latest"])
	assert.Equal(t, true, body["available"])
}

func TestControl(t *testing.T) {
	server, controller, store := newTestServer(t, true)

	code, body := request(t, server, "POST", "/control", `{"mode":"bus"}`)
	assert.Equal(t, 202, code)
	assert.Equal(t, "switch-mode", body["event"])
	require.Len(t, controller.events, 1)
	assert.Equal(t, scheduler.Bus, controller.events[0].Mode)
	assert.Equal(t, "bus", store.Get().Mode)

	code, _ = request(t, server, "POST", "/control", `{"mode":"tram"}`)
	assert.Equal(t, 400, code)
	assert.Len(t, controller.events, 1)
}

func TestReconfigure(t *testing.T) {
	server, controller, store := newTestServer(t, true)

	code, _ := request(t, server, "POST", "/reconfigure", `{"tube":{"stop_id":"940GZZLUOXC"},"display":{"no_scrolling":true}}`)
	assert.Equal(t, 202, code)
	require.Len(t, controller.events, 1)

	event := controller.events[0]
	assert.Equal(t, scheduler.EventReconfigure, event.Kind)
	require.NotNil(t, event.Settings)
	assert.True(t, event.Settings.NoScrolling)
	assert.Equal(t, "940GZZLUOXC", store.Get().Tube.StopID)
	assert.Equal(t, "BTN", store.Get().Rail.CRS)

	code, _ = request(t, server, "POST", "/reconfigure", `{"display":{"brightness":900}}`)
	assert.Equal(t, 400, code)
}

func TestSleepBrightnessAndUpdate(t *testing.T) {
	server, controller, _ := newTestServer(t, true)

	code, _ := request(t, server, "POST", "/sleep", `{"on":true}`)
	assert.Equal(t, 202, code)
	code, _ = request(t, server, "POST", "/brightness", `{"level":20}`)
	assert.Equal(t, 202, code)
	code, _ = request(t, server, "POST", "/update", "")
	assert.Equal(t, 202, code)

	require.Len(t, controller.events, 3)
	assert.True(t, controller.events[0].On)
	assert.Equal(t, 20, controller.events[1].Level)
	assert.Equal(t, scheduler.EventFirmwareCheck, controller.events[2].Kind)
}

func TestControlRateLimit(t *testing.T) {
	server, _, _ := newTestServer(t, true)

	for i := 0; i < 3; i++ {
		code, _ := request(t, server, "POST", "/update", "")
		assert.Equal(t, 202, code)
	}

	code, _ := request(t, server, "POST", "/update", "")
	assert.Equal(t, 429, code)

	code, _ = request(t, server, "GET", "/info", "")
	assert.Equal(t, 200, code)
}

func TestBusyScheduler(t *testing.T) {
	server, controller, _ := newTestServer(t, true)
	controller.full = true

	code, _ := request(t, server, "POST", "/sleep", `{"on":false}`)
	assert.Equal(t, 503, code)
}
