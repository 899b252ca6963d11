package scheduler

type EventKind int

const (
	EventSwitchMode EventKind = iota
	EventReconfigure
	EventSleep
	EventBrightness
	EventFirmwareCheck
)

func (k EventKind) String() string {
	switch k {
	case EventSwitchMode:
		return "switch-mode"
	case EventReconfigure:
		return "reconfigure"
	case EventSleep:
		return "sleep"
	case EventBrightness:
		return "brightness"
	case EventFirmwareCheck:
		return "firmware-check"
	default:
		return "unknown"
	}
}

// Event is a request from the configuration interface, applied at the start
// of the next frame or while a fetch is streaming.
type Event struct {
	Kind     EventKind
	Mode     Mode
	Settings *Settings
	On       bool
	Level    int
}

func SwitchMode(mode Mode) Event {
	return Event{Kind: EventSwitchMode, Mode: mode}
}

// Reconfigure rebuilds every client. A nil settings keeps the current ones.
func Reconfigure(settings *Settings) Event {
	return Event{Kind: EventReconfigure, Settings: settings}
}

func Sleep(on bool) Event {
	return Event{Kind: EventSleep, On: on}
}

func Brightness(level int) Event {
	return Event{Kind: EventBrightness, Level: level}
}

func CheckFirmware() Event {
	return Event{Kind: EventFirmwareCheck}
}
